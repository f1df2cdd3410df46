package educonnect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-educonnect"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		identity *educonnect.Identity
		expected educonnect.Role
	}{
		{
			name:     "nil identity",
			identity: nil,
			expected: educonnect.RoleNone,
		},
		{
			name:     "no metadata",
			identity: &educonnect.Identity{ID: "1"},
			expected: educonnect.RoleNone,
		},
		{
			name:     "organization",
			identity: &educonnect.Identity{ID: "1", Metadata: map[string]any{"user_type": "organization"}},
			expected: educonnect.RoleOrganization,
		},
		{
			name:     "educator",
			identity: &educonnect.Identity{ID: "1", Metadata: map[string]any{"user_type": "educator"}},
			expected: educonnect.RoleEducator,
		},
		{
			name:     "unknown value",
			identity: &educonnect.Identity{ID: "1", Metadata: map[string]any{"user_type": "admin"}},
			expected: educonnect.RoleNone,
		},
		{
			name:     "wrong case is not normalized",
			identity: &educonnect.Identity{ID: "1", Metadata: map[string]any{"user_type": "Educator"}},
			expected: educonnect.RoleNone,
		},
		{
			name:     "non string value",
			identity: &educonnect.Identity{ID: "1", Metadata: map[string]any{"user_type": 42}},
			expected: educonnect.RoleNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, educonnect.Classify(tt.identity))
		})
	}
}

func TestRoleDashboardPath(t *testing.T) {
	assert.Equal(t, "/organization/dashboard", educonnect.RoleOrganization.DashboardPath())
	assert.Equal(t, "/educator/dashboard", educonnect.RoleEducator.DashboardPath())
	assert.Equal(t, "/", educonnect.RoleNone.DashboardPath())
}

func TestRoleProfileTable(t *testing.T) {
	assert.Equal(t, "organization_profiles", educonnect.RoleOrganization.ProfileTable())
	assert.Equal(t, "educator_profiles", educonnect.RoleEducator.ProfileTable())
	assert.Empty(t, educonnect.RoleNone.ProfileTable())
}

func TestParseRole(t *testing.T) {
	role, ok := educonnect.ParseRole(" Educator ")
	assert.True(t, ok)
	assert.Equal(t, educonnect.RoleEducator, role)

	role, ok = educonnect.ParseRole("organization")
	assert.True(t, ok)
	assert.Equal(t, educonnect.RoleOrganization, role)

	role, ok = educonnect.ParseRole("admin")
	assert.False(t, ok)
	assert.Equal(t, educonnect.RoleNone, role)
}

func TestGetAllRoles(t *testing.T) {
	roles := educonnect.GetAllRoles()
	assert.Equal(t, []educonnect.Role{educonnect.RoleOrganization, educonnect.RoleEducator}, roles)
	for _, role := range roles {
		assert.True(t, role.IsValid())
		assert.NotEmpty(t, role.Label())
	}
	assert.False(t, educonnect.RoleNone.IsValid())
}
