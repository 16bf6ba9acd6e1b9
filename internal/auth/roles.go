package auth

// Role represents a console user role.
type Role string

const (
	RoleAttendant      Role = "attendant"
	RoleStationManager Role = "station_manager"
	RoleDealer         Role = "dealer"
	RoleOMC            Role = "omc"
	RoleAdmin          Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAttendant, RoleStationManager, RoleDealer, RoleOMC, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
// Dealer and OMC sit at the same rank: they are parallel network owners,
// not a hierarchy.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleAttendant:
		return 1
	case RoleStationManager:
		return 2
	case RoleDealer, RoleOMC:
		return 3
	case RoleAdmin:
		return 4
	default:
		return 0
	}
}
