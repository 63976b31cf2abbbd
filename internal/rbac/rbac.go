// Package rbac maps global person roles to the actions they may perform.
package rbac

type Role string
type Action string

const (
	RoleBuilder Role = "builder"
	RoleClient  Role = "client"
	RoleMonitor Role = "monitor"
)

const (
	// ActionRead covers reads, task and quality-check updates, documents,
	// schedules, messages, AI and uploads.
	ActionRead Action = "read"
	// ActionContribute is the write side of the everyday workflow.
	ActionContribute Action = "contribute"
	// ActionStructure changes the shape of a home: create/update home,
	// trades, invoices, client/monitor assignment, onboarding, templates,
	// document deletion.
	ActionStructure Action = "structure"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleBuilder:
		return true
	case RoleClient, RoleMonitor:
		return action == ActionRead || action == ActionContribute
	default:
		return false
	}
}

// CanAny reports whether any of roles allows action.
func CanAny(roles []string, action Action) bool {
	for _, r := range Effective(roles) {
		if Can(r, action) {
			return true
		}
	}
	return false
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleBuilder, RoleClient, RoleMonitor:
		return Role(role)
	default:
		return RoleMonitor
	}
}

// Effective normalizes roles; an empty set is treated as monitor.
func Effective(roles []string) []Role {
	if len(roles) == 0 {
		return []Role{RoleMonitor}
	}
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, Normalize(r))
	}
	return out
}
