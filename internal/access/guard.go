// Package access decides whether a request may proceed: authenticate turns a
// signed credential into an Identity, authorize checks the caller's stored
// role.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// Identity is the decoded holder of a valid credential.
type Identity struct {
	Email string
}

// CredentialVerifier decodes a signed session credential.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RoleLookup returns the stored role for an email, or core.ErrNotFound.
type RoleLookup interface {
	RoleOf(ctx context.Context, email string) (models.Role, error)
}

type Guard struct {
	credentials CredentialVerifier
	roles       RoleLookup
}

// NewGuard combines a credential verifier with a role lookup.
func NewGuard(credentials CredentialVerifier, roles RoleLookup) *Guard {
	return &Guard{credentials: credentials, roles: roles}
}

// Authenticate never touches the store. Missing, malformed and expired
// credentials are all ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("missing credential: %w", core.ErrUnauthenticated)
	}
	id, err := g.credentials.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if id.Email == "" {
		return Identity{}, fmt.Errorf("credential has no subject: %w", core.ErrUnauthenticated)
	}
	return id, nil
}

// Authorize reads the caller's role and compares it to required. A caller
// with no user record is forbidden, not an error.
func (g *Guard) Authorize(ctx context.Context, id Identity, required models.Role) error {
	role, err := g.roles.RoleOf(ctx, id.Email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return fmt.Errorf("no user %s: %w", id.Email, core.ErrForbidden)
	case err != nil:
		return err
	}
	if role != required {
		return fmt.Errorf("role %s required: %w", required, core.ErrForbidden)
	}
	return nil
}

// UserRoles reads roles from the users collection.
type UserRoles struct {
	engine *query.Engine
}

// NewUserRoles returns a RoleLookup backed by the users collection.
func NewUserRoles(engine *query.Engine) *UserRoles {
	return &UserRoles{engine: engine}
}

func (u *UserRoles) RoleOf(ctx context.Context, email string) (models.Role, error) {
	user, err := query.FindOne[models.User](ctx, u.engine, query.Users, storage.Filter{storage.Eq("email", email)})
	if err != nil {
		return "", err
	}
	return user.Role, nil
}
