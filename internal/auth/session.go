package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/golang-jwt/jwt"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

const issuer = "filebook"

// Verifier resolves HS256 bearer tokens into sessions. The identity provider
// signs tokens with the shared secret and the claims sub, role and plan.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// FromHeader parses an "Authorization: Bearer <token>" header value.
func (v *Verifier) FromHeader(header string) (filebookModel.Session, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return filebookModel.Session{}, ErrMissingToken
	}
	return v.Parse(strings.TrimSpace(token))
}

func (v *Verifier) Parse(tokenString string) (filebookModel.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return filebookModel.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return filebookModel.Session{}, ErrInvalidToken
	}
	return sessionFromClaims(claims)
}

// Issue signs a token for session. It backs the CLI and tests; production
// tokens come from the identity provider.
func (v *Verifier) Issue(session filebookModel.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  session.UserId,
		"role": string(session.Role),
		"plan": string(session.Plan),
		"iss":  issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func sessionFromClaims(claims jwt.MapClaims) (filebookModel.Session, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return filebookModel.Session{}, ErrInvalidClaims
	}

	role := filebookModel.RoleUser
	if r, _ := claims["role"].(string); r != "" {
		switch filebookModel.UserRole(r) {
		case filebookModel.RoleAdmin, filebookModel.RoleUser:
			role = filebookModel.UserRole(r)
		default:
			return filebookModel.Session{}, fmt.Errorf("%w: role %q", ErrInvalidClaims, r)
		}
	}

	plan := filebookModel.PlanFree
	if p, _ := claims["plan"].(string); p != "" {
		switch filebookModel.Plan(strings.ToUpper(p)) {
		case filebookModel.PlanFree, filebookModel.PlanPro:
			plan = filebookModel.Plan(strings.ToUpper(p))
		default:
			return filebookModel.Session{}, fmt.Errorf("%w: plan %q", ErrInvalidClaims, p)
		}
	}
	return filebookModel.Session{UserId: sub, Role: role, Plan: plan}, nil
}
