package question

// Context permissions
const (
	PermEdit   = "manage_assignments_edit"
	PermAdd    = "manage_assignments_add"
	PermDelete = "manage_assignments_delete"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var grants = map[string][]Action{
	PermEdit:   {ActionRead, ActionCreate, ActionUpdate, ActionDelete},
	PermAdd:    {ActionRead, ActionCreate},
	PermDelete: {ActionRead, ActionDelete},
}

// Can reports whether any of perms grants action on questions.
func Can(perms []string, action Action) bool {
	for _, perm := range perms {
		for _, granted := range grants[perm] {
			if granted == action {
				return true
			}
		}
	}
	return false
}

// IsPerm reports whether perm is a known question permission.
func IsPerm(perm string) bool {
	_, ok := grants[perm]
	return ok
}
