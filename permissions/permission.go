// Package permissions holds the embedded route table that decides which
// roles may call which endpoint.
package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"innkeeper/shared/constant"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

var knownRoles = []string{constant.RoleAdmin, constant.RoleStaff, constant.RoleGuest}

// Permission is one route entry. Permissions lists the roles admitted; an
// empty list admits any authenticated caller. Skip makes the route public.
type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`
}

// FindPermissions looks up a route pattern. Trailing slashes are ignored so
// /v1/rooms and /v1/rooms/ share an entry. Unknown routes get the zero value.
func (r *PermissionData) FindPermissions(path, method string) Permission {
	path = normalize(path)

	for _, endpoint := range r.Endpoints {
		if normalize(endpoint.Path) == path && strings.EqualFold(endpoint.Method, method) {
			return endpoint
		}
	}

	return Permission{}
}

// validate rejects roles the service does not issue.
func (r *PermissionData) validate() error {
	for _, endpoint := range r.Endpoints {
		for _, role := range endpoint.Permissions {
			if !slices.Contains(knownRoles, role) {
				return fmt.Errorf("%s %s: unknown role %q", endpoint.Method, endpoint.Path, role)
			}
		}
	}

	return nil
}

func normalize(path string) string {
	if path == "/" {
		return path
	}

	return strings.TrimSuffix(path, "/")
}

func parse(raw []byte) (*PermissionData, error) {
	var data PermissionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}

	if err := data.validate(); err != nil {
		return nil, err
	}

	return &data, nil
}

// Get loads the embedded table. It returns nil when the table is invalid,
// which makes RBAC refuse every protected route.
func Get() *PermissionData {
	data, err := parse(permissionsData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(data.Endpoints)).Msg("Loaded embedded permissions")

	return data
}
