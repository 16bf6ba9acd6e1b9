package auth

import (
	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

// Scope is the predicate set limiting which stations a caller may see or
// act on. At most one of the constraint fields is populated; an
// unrestricted scope has none.
type Scope struct {
	Unrestricted bool
	OMCID        string
	DealerID     string
	StationID    string
}

type scopeRule struct {
	role  Role
	build func(Identity) (Scope, error)
}

// scopeRules is the visibility table, first match wins. Station-bound
// roles share one rule; a missing identity field means the token was
// minted wrong and the caller gets nothing rather than everything.
var scopeRules = []scopeRule{
	{RoleAdmin, func(Identity) (Scope, error) {
		return Scope{Unrestricted: true}, nil
	}},
	{RoleOMC, func(id Identity) (Scope, error) {
		if id.OMCID == "" {
			return Scope{}, ErrForbidden
		}
		return Scope{OMCID: id.OMCID}, nil
	}},
	{RoleDealer, func(id Identity) (Scope, error) {
		if id.DealerID == "" {
			return Scope{}, ErrForbidden
		}
		return Scope{DealerID: id.DealerID}, nil
	}},
	{RoleStationManager, buildStationScope},
	{RoleAttendant, buildStationScope},
}

func buildStationScope(id Identity) (Scope, error) {
	if id.StationID == "" {
		return Scope{}, ErrForbidden
	}
	return Scope{StationID: id.StationID}, nil
}

// ScopeFor resolves the visibility scope for a role and identity.
func ScopeFor(role Role, identity Identity) (Scope, error) {
	for _, rule := range scopeRules {
		if rule.role == role {
			return rule.build(identity)
		}
	}
	return Scope{}, ErrForbidden
}

// AllowsStation reports whether a station falls inside the scope, based
// on the station's ownership edges.
func (s Scope) AllowsStation(station masterdata.Station) bool {
	switch {
	case s.Unrestricted:
		return true
	case s.OMCID != "":
		return station.OMCID == s.OMCID
	case s.DealerID != "":
		return station.DealerID == s.DealerID
	case s.StationID != "":
		return station.ID == s.StationID
	default:
		return false
	}
}
