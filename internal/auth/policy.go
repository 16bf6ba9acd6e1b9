package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the minimum role for a request. Row-level
// visibility is applied separately by the scope filter; this table only
// gates verbs.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/sales":
		// attendants both record and list sales
		return RoleAttendant, true
	case strings.HasPrefix(path, "/api/v1/sales/"):
		if method == http.MethodGet {
			return RoleAttendant, true
		}
		return RoleStationManager, true
	case path == "/api/v1/deposits":
		if method == http.MethodPost {
			return RoleStationManager, true
		}
		return RoleAttendant, true
	case strings.HasPrefix(path, "/api/v1/deposits/"):
		if method == http.MethodGet {
			return RoleAttendant, true
		}
		return RoleStationManager, true
	case path == "/api/v1/summary":
		return RoleAttendant, true
	case path == "/api/v1/reports/generate":
		return RoleStationManager, true
	case path == "/api/v1/reports":
		return RoleAttendant, true
	case strings.HasPrefix(path, "/api/v1/reports/"):
		if method == http.MethodGet {
			// covers reads, verify and export
			return RoleAttendant, true
		}
		return RoleStationManager, true
	case path == "/api/v1/alerts":
		return RoleStationManager, true
	case strings.HasPrefix(path, "/api/v1/alerts/"):
		return RoleStationManager, true
	case path == "/api/v1/stations" || path == "/api/v1/pumps":
		// masterdata writes shape every scope decision downstream
		if method == http.MethodGet {
			return RoleAttendant, true
		}
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/stations/"):
		return RoleAttendant, true
	case strings.HasPrefix(path, "/api/v1/pumps/"):
		if method == http.MethodGet {
			return RoleAttendant, true
		}
		// meter corrections
		return RoleStationManager, true
	case path == "/api/v1/products":
		return RoleAttendant, true
	case path == "/api/v1/prices":
		if method == http.MethodGet {
			return RoleAttendant, true
		}
		return RoleDealer, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleAttendant, true
		}
		return RoleStationManager, true
	}
	return "", false
}
