package cmd

import (
	"testing"

	"moodwave/model"

	"github.com/stretchr/testify/assert"
)

func TestValidateSuperuser(t *testing.T) {
	assert.Error(t, validateSuperuser("", "long-enough-1"))
	assert.Error(t, validateSuperuser("not-an-email", "long-enough-1"))
	assert.Error(t, validateSuperuser("root@example.com", ""))
	assert.Error(t, validateSuperuser("root@example.com", "12345678"))
	assert.NoError(t, validateSuperuser("root@example.com", "long-enough-1"))
}

func TestUserFlags(t *testing.T) {
	assert.Equal(t, "-", userFlags(&model.User{IsActive: true}))
	assert.Equal(t, "staff,superuser", userFlags(&model.User{IsActive: true, IsStaff: true, IsSuperuser: true}))
	assert.Equal(t, "inactive", userFlags(&model.User{}))
}
