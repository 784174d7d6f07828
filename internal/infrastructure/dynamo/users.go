package dynamo

import (
	"context"

	"github.com/dmca-notices/internal/domain"
)

// UserRepo resolves authenticated users to their profile.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return getOne[domain.User](ctx, r.client, r.tableName, fieldUserID, userID, "user")
}
