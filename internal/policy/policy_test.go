package policy

import (
	"context"
	"testing"
)

type ownedThing struct{ owner uint }

func (o ownedThing) GetOwnerID() uint { return o.owner }

func TestOwnershipPolicy(t *testing.T) {
	p := NewOwnershipPolicy()
	ctx := context.Background()

	if !p.Can(ctx, 1, ActionUpdate, ownedThing{owner: 1}) {
		t.Error("owner should be allowed")
	}
	if p.Can(ctx, 2, ActionUpdate, ownedThing{owner: 1}) {
		t.Error("non-owner should be denied")
	}
	if !p.Can(ctx, 2, ActionList, nil) {
		t.Error("nil resource (list/create) should be allowed")
	}
	if p.Can(ctx, 1, ActionView, "not ownable") {
		t.Error("non-Ownable resource should be denied")
	}
}

func TestAdminBypassPolicy(t *testing.T) {
	ctx := context.Background()
	admins := map[uint]bool{9: true}
	p := NewAdminBypassPolicy(NewOwnershipPolicy(), func(_ context.Context, uid uint) bool {
		return admins[uid]
	})

	if !p.Can(ctx, 9, ActionApprove, ownedThing{owner: 1}) {
		t.Error("admin should bypass ownership")
	}
	if p.Can(ctx, 2, ActionApprove, ownedThing{owner: 1}) {
		t.Error("regular user still bound by inner policy")
	}
	if !p.Can(ctx, 1, ActionApprove, ownedThing{owner: 1}) {
		t.Error("owner allowed through inner policy")
	}
}
