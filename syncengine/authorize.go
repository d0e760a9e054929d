package syncengine

import (
	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/syncentity"
)

type Operation string

const (
	OperationPull Operation = "pull"
	OperationPush Operation = "push"
)

// Authorize permits role when it belongs to allowed.
func Authorize(allowed models.RoleSet, role models.Role) error {
	if allowed.Has(role) {
		return nil
	}
	return ErrForbidden
}

func allowedRoles(cfg *syncentity.Config, op Operation) models.RoleSet {
	if op == OperationPush {
		return cfg.WriteRoles
	}
	return cfg.ReadRoles
}
