package auth

import (
	"context"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
)

func WithSession(ctx context.Context, session filebookModel.Session) context.Context {
	return context.WithValue(ctx, config.SESSION_KEY, session)
}

// SessionFrom returns the session the middleware attached, if any.
func SessionFrom(ctx context.Context) (filebookModel.Session, bool) {
	session, ok := ctx.Value(config.SESSION_KEY).(filebookModel.Session)
	return session, ok && session.UserId != ""
}
