package http

import (
	"context"

	"github.com/dmca-notices/internal/application/notice"
	"github.com/dmca-notices/internal/application/session"
	"github.com/dmca-notices/internal/domain"
	jwtinfra "github.com/dmca-notices/internal/infrastructure/jwt"
	"github.com/dmca-notices/internal/transport/http/handler"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Deps holds all infrastructure dependencies for the router. Archive and
// Events may be nil.
type Deps struct {
	UserRepo     UserRepository
	NoticeRepo   notice.Repository
	ProviderRepo notice.ProviderDirectory
	SessionStore session.Store
	Compiler     notice.Compiler
	Mail         notice.Dispatcher
	Archive      notice.Archive
	Events       notice.EventPublisher
	JWTProvider  *jwtinfra.Provider
	// HealthChecks back the /health-check/ready probe, keyed by dependency name.
	HealthChecks map[string]handler.Check
}
