package ports

import (
	"context"

	"github.com/hotelops/console/internal/core/domain"
)

// RoleLookup resolves the authoritative role of an account identity.
type RoleLookup interface {
	LookupRole(ctx context.Context, identity string) (domain.Role, error)
}

// RoleWriter updates the authoritative role of an account identity.
type RoleWriter interface {
	SetRole(ctx context.Context, identity string, role domain.Role) error
}

// RoleChangePublisher announces that an identity's role changed.
type RoleChangePublisher interface {
	PublishRoleChange(ctx context.Context, identity string) error
}
