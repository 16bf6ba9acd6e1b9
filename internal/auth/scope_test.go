package auth

import (
	"errors"
	"testing"

	masterdata "fuelretail-cloud/internal/masterdata/domain"
)

var (
	accra  = masterdata.Station{ID: "st-accra-1", DealerID: "dealer-1", OMCID: "omc-1"}
	tema   = masterdata.Station{ID: "st-tema-1", DealerID: "dealer-1", OMCID: "omc-1"}
	tamale = masterdata.Station{ID: "st-tamale-1", DealerID: "dealer-2", OMCID: "omc-2"}
)

func TestScopeForRoleTable(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		identity Identity
		allowed  []masterdata.Station
		denied   []masterdata.Station
	}{
		{
			name:     "admin sees everything",
			role:     RoleAdmin,
			identity: Identity{Subject: "admin-1"},
			allowed:  []masterdata.Station{accra, tema, tamale},
		},
		{
			name:     "omc sees its network",
			role:     RoleOMC,
			identity: Identity{Subject: "omc-user", OMCID: "omc-1"},
			allowed:  []masterdata.Station{accra, tema},
			denied:   []masterdata.Station{tamale},
		},
		{
			name:     "dealer sees its stations",
			role:     RoleDealer,
			identity: Identity{Subject: "dealer-user", DealerID: "dealer-2"},
			allowed:  []masterdata.Station{tamale},
			denied:   []masterdata.Station{accra, tema},
		},
		{
			name:     "station manager sees one station",
			role:     RoleStationManager,
			identity: Identity{Subject: "manager", StationID: "st-accra-1"},
			allowed:  []masterdata.Station{accra},
			denied:   []masterdata.Station{tema, tamale},
		},
		{
			name:     "attendant sees one station",
			role:     RoleAttendant,
			identity: Identity{Subject: "attendant", StationID: "st-tema-1"},
			allowed:  []masterdata.Station{tema},
			denied:   []masterdata.Station{accra, tamale},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scope, err := ScopeFor(tc.role, tc.identity)
			if err != nil {
				t.Fatalf("ScopeFor: %v", err)
			}
			for _, station := range tc.allowed {
				if !scope.AllowsStation(station) {
					t.Errorf("station %s should be visible", station.ID)
				}
			}
			for _, station := range tc.denied {
				if scope.AllowsStation(station) {
					t.Errorf("station %s should be hidden", station.ID)
				}
			}
		})
	}
}

func TestScopeForMissingIdentityFieldDeniesAll(t *testing.T) {
	cases := []struct {
		role     Role
		identity Identity
	}{
		{RoleOMC, Identity{Subject: "u"}},
		{RoleDealer, Identity{Subject: "u"}},
		{RoleStationManager, Identity{Subject: "u"}},
		{RoleAttendant, Identity{Subject: "u"}},
	}
	for _, tc := range cases {
		_, err := ScopeFor(tc.role, tc.identity)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("role %s with empty identity: got %v, want ErrForbidden", tc.role, err)
		}
	}
}

func TestScopeForUnknownRole(t *testing.T) {
	_, err := ScopeFor(Role("superuser"), Identity{Subject: "u"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown role must be denied, got %v", err)
	}
}

func TestEmptyScopeDeniesAll(t *testing.T) {
	if (Scope{}).AllowsStation(accra) {
		t.Fatal("zero-value scope must deny everything")
	}
}

func TestRoleRanking(t *testing.T) {
	if !RoleAtLeast(RoleAdmin, RoleStationManager) {
		t.Fatal("admin outranks station manager")
	}
	if RoleAtLeast(RoleAttendant, RoleStationManager) {
		t.Fatal("attendant does not outrank station manager")
	}
	// Dealer and OMC sit at the same rank with different visibility.
	if !RoleAtLeast(RoleDealer, RoleOMC) || !RoleAtLeast(RoleOMC, RoleDealer) {
		t.Fatal("dealer and omc share a rank")
	}
}
