package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodeGenerator(t *testing.T) *CodeGenerator {
	t.Helper()
	g, err := NewCodeGenerator(testSecret, 72*time.Hour)
	require.NoError(t, err)
	return g
}

func TestCodeGenerator_RoundTrip(t *testing.T) {
	g := newTestCodeGenerator(t)
	user := createTestUser(models.RoleUser)
	now := time.Now()

	code := g.Make(user, now)

	assert.True(t, strings.Contains(code, "-"))
	assert.True(t, g.Check(user, code, now))
	assert.True(t, g.Check(user, code, now.Add(71*time.Hour)))
}

func TestCodeGenerator_Expired(t *testing.T) {
	g := newTestCodeGenerator(t)
	user := createTestUser(models.RoleUser)
	now := time.Now()

	code := g.Make(user, now)

	assert.False(t, g.Check(user, code, now.Add(73*time.Hour)))
}

func TestCodeGenerator_IssuedInFuture(t *testing.T) {
	g := newTestCodeGenerator(t)
	user := createTestUser(models.RoleUser)
	now := time.Now()

	code := g.Make(user, now.Add(time.Hour))

	assert.False(t, g.Check(user, code, now))
}

func TestCodeGenerator_StateChangeInvalidates(t *testing.T) {
	g := newTestCodeGenerator(t)
	now := time.Now()

	mutations := map[string]func(u *models.User){
		"username":   func(u *models.User) { u.Username = "renamed" },
		"email":      func(u *models.User) { u.Email = "other@example.com" },
		"role":       func(u *models.User) { u.Role = models.RoleModerator },
		"last_login": func(u *models.User) { ts := now.Add(time.Second); u.LastLogin = &ts },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			user := createTestUser(models.RoleUser)
			code := g.Make(user, now)

			mutate(user)

			assert.False(t, g.Check(user, code, now))
		})
	}
}

func TestCodeGenerator_DifferentSecret(t *testing.T) {
	g := newTestCodeGenerator(t)
	other, err := NewCodeGenerator(testWrongSecret, 72*time.Hour)
	require.NoError(t, err)
	user := createTestUser(models.RoleUser)
	now := time.Now()

	assert.False(t, other.Check(user, g.Make(user, now), now))
}

func TestCodeGenerator_Malformed(t *testing.T) {
	g := newTestCodeGenerator(t)
	user := createTestUser(models.RoleUser)
	now := time.Now()

	for _, code := range []string{"", "-", "abc", "zz-short", "!!!-0123456789abcdef0123", strings.Repeat("a", 40)} {
		assert.False(t, g.Check(user, code, now), code)
	}
}
