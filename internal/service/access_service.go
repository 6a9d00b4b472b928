package service

import (
	"context"

	"go-tasklist/internal/model"
)

type ownershipStore interface {
	IsTaskOwner(ctx context.Context, userID int64, taskID int64) (bool, error)
}

// AccessService holds the authorization predicates consulted by handlers
// after authentication has run. Both deny anonymous requests instead of
// failing.
type AccessService struct {
	owners ownershipStore
}

func NewAccessService(owners ownershipStore) *AccessService {
	return &AccessService{owners: owners}
}

// CanAccessUser allows a user to act on their own account, and admins to
// act on any account.
func (s *AccessService) CanAccessUser(principal *model.Principal, targetID int64) bool {
	if principal == nil {
		return false
	}

	return principal.ID == targetID || principal.HasRole(model.RoleAdmin)
}

// CanAccessTask follows ownership alone. There is no admin override here:
// an admin who does not own the task is denied, unlike CanAccessUser.
func (s *AccessService) CanAccessTask(ctx context.Context, principal *model.Principal, taskID int64) (bool, error) {
	if principal == nil {
		return false, nil
	}

	return s.owners.IsTaskOwner(ctx, principal.ID, taskID)
}
