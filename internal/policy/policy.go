package policy

import "context"

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionApprove Action = "approve"
	ActionList    Action = "list"
)

// Policy decides whether a user may perform an action on a resource.
type Policy interface {
	Can(ctx context.Context, userID uint, action Action, resource any) bool
}

// Ownable is implemented by models that have an owning user, enabling
// ownership-based authorization.
type Ownable interface {
	GetOwnerID() uint
}

// OwnershipPolicy allows access when the user owns the resource. For
// list/create actions (resource is nil) it always allows, since those are
// scoped by query. Resources that do not implement Ownable are denied.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy { return &OwnershipPolicy{} }

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetOwnerID() == userID
}

// AdminBypassPolicy wraps another policy and always allows access for admins.
type AdminBypassPolicy struct {
	inner       Policy
	isAdminFunc func(ctx context.Context, userID uint) bool
}

func NewAdminBypassPolicy(inner Policy, isAdminFunc func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdminFunc: isAdminFunc}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action Action, resource any) bool {
	if p.isAdminFunc(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
