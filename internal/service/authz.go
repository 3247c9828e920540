package service

import "errors"

var (
	ErrInsufficientPrivilege = errors.New("super admin access required")
	ErrSelfDeletion          = errors.New("cannot delete yourself")
)

// Operation names a class of management action for authorization.
type Operation string

const (
	OpRead        Operation = "read"
	OpManage      Operation = "manage"
	OpCreateAdmin Operation = "create_admin"
	OpUpdateAdmin Operation = "update_admin"
	OpDeleteAdmin Operation = "delete_admin"
)

// Action is an operation against an optional target admin. ChangesPrivilege
// marks an admin update that touches role or active state.
type Action struct {
	Op               Operation
	TargetID         string
	ChangesPrivilege bool
}

// Authorize reports whether the admin may perform the action. Self-deletion
// is refused before the role is consulted, so it applies to super admins
// too.
func Authorize(id AdminIdentity, a Action) error {
	switch a.Op {
	case OpDeleteAdmin:
		if a.TargetID == id.AdminID {
			return ErrSelfDeletion
		}
		return requireSuper(id)
	case OpCreateAdmin:
		return requireSuper(id)
	case OpUpdateAdmin:
		if a.TargetID != id.AdminID || a.ChangesPrivilege {
			return requireSuper(id)
		}
		return nil
	default:
		return nil
	}
}

func requireSuper(id AdminIdentity) error {
	if !id.Role.IsSuper() {
		return ErrInsufficientPrivilege
	}
	return nil
}
