package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityFlagsAreExclusive(t *testing.T) {
	roles := []UserRole{RoleAdmin, RoleStudentAffairs, RoleFacultyMember, RoleLecturer, RoleStudent}
	for _, role := range roles {
		user := &User{Role: role, Superuser: role == RoleAdmin}
		flags := 0
		for _, set := range []bool{user.IsAdmin(), user.IsStudentAffairs(), user.IsFacultyMember(), user.IsLecturer(), user.IsStudent()} {
			if set {
				flags++
			}
		}
		assert.Equal(t, 1, flags, "role %s must map to exactly one capability", role)
	}
}

func TestAdminRequiresSuperuser(t *testing.T) {
	user := &User{Role: RoleAdmin, Superuser: false}
	assert.False(t, user.IsAdmin(), "admin role without the superuser flag carries no admin capability")

	user.Superuser = true
	assert.True(t, user.IsAdmin())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleLecturer))
	assert.False(t, ValidRole(UserRole("PROFESSOR")))
}
