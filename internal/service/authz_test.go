package service

import (
	"errors"
	"testing"

	"github.com/subgate/subgate/internal/model"
)

func TestAuthorize(t *testing.T) {
	super := AdminIdentity{AdminID: "s1", Role: model.RoleSuperAdmin}
	admin := AdminIdentity{AdminID: "a1", Role: model.RoleAdmin}

	tests := []struct {
		name   string
		id     AdminIdentity
		action Action
		want   error
	}{
		{"admin reads", admin, Action{Op: OpRead}, nil},
		{"admin manages products", admin, Action{Op: OpManage}, nil},
		{"admin creates admin", admin, Action{Op: OpCreateAdmin}, ErrInsufficientPrivilege},
		{"super creates admin", super, Action{Op: OpCreateAdmin}, nil},
		{"admin edits another admin", admin, Action{Op: OpUpdateAdmin, TargetID: "s1"}, ErrInsufficientPrivilege},
		{"admin edits own profile", admin, Action{Op: OpUpdateAdmin, TargetID: "a1"}, nil},
		{"admin promotes self", admin, Action{Op: OpUpdateAdmin, TargetID: "a1", ChangesPrivilege: true}, ErrInsufficientPrivilege},
		{"super edits another admin", super, Action{Op: OpUpdateAdmin, TargetID: "a1", ChangesPrivilege: true}, nil},
		{"admin deletes another admin", admin, Action{Op: OpDeleteAdmin, TargetID: "s1"}, ErrInsufficientPrivilege},
		{"super deletes another admin", super, Action{Op: OpDeleteAdmin, TargetID: "a1"}, nil},
		{"super deletes self", super, Action{Op: OpDeleteAdmin, TargetID: "s1"}, ErrSelfDeletion},
		{"admin deletes self", admin, Action{Op: OpDeleteAdmin, TargetID: "a1"}, ErrSelfDeletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.id, tt.action)
			if !errors.Is(err, tt.want) {
				t.Errorf("Authorize() = %v, want %v", err, tt.want)
			}
		})
	}
}
