package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRole_AtLeast(t *testing.T) {
	assert.True(t, RoleManage.AtLeast(RoleStaff))
	assert.True(t, RoleManage.AtLeast(RoleManage))
	assert.True(t, RoleStaff.AtLeast(RoleStaff))
	assert.False(t, RoleStaff.AtLeast(RoleManage))
	assert.False(t, RoleNone.AtLeast(RoleStaff))
}

func TestEventRole_CanRemove(t *testing.T) {
	tests := []struct {
		actor  EventRole
		target EventRole
		want   bool
	}{
		{actor: RoleManage, target: RoleNone, want: true},
		{actor: RoleManage, target: RoleStaff, want: true},
		{actor: RoleManage, target: RoleManage, want: false},
		{actor: RoleStaff, target: RoleNone, want: true},
		{actor: RoleStaff, target: RoleStaff, want: false},
		{actor: RoleStaff, target: RoleManage, want: false},
		{actor: RoleNone, target: RoleNone, want: true},
		{actor: RoleNone, target: RoleStaff, want: true},
		{actor: RoleNone, target: RoleManage, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.actor.String()+"->"+tt.target.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.CanRemove(tt.target))
		})
	}
}

func TestParseEventRole(t *testing.T) {
	role, err := ParseEventRole("manage")
	require.NoError(t, err)
	assert.Equal(t, RoleManage, role)
	assert.Equal(t, "MANAGE", role.String())

	_, err = ParseEventRole("owner")
	assert.ErrorIs(t, err, ErrValidation)
}
