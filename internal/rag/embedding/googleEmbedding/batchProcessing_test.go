package googleEmbedding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad"), false},
		{"api 429", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"wrapped api 429", fmt.Errorf("embed: %w", genai.APIError{Code: 429}), true},
		{"api 400", genai.APIError{Code: 400}, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}

func TestGetContent(t *testing.T) {
	contents := getContent([]string{"a", "b"})
	assert.Len(t, contents, 2)
	assert.Equal(t, "b", contents[1].Parts[0].Text)
}
