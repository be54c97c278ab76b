package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/stretchr/testify/assert"
)

func subjectWith(role models.Role) Subject {
	return Subject{UserID: uuid.New(), Username: string(role), Role: role}
}

func TestAuthorize_DecisionTable(t *testing.T) {
	anon := Anonymous()
	user := subjectWith(models.RoleUser)
	moderator := subjectWith(models.RoleModerator)
	admin := subjectWith(models.RoleAdmin)

	someoneElse := uuid.New()
	own := user.UserID

	testCases := []struct {
		name     string
		subject  Subject
		action   Action
		resource Resource
		owner    *uuid.UUID
		want     bool
	}{
		// Reads are public.
		{"anon reads title", anon, ActionRead, ResourceTitle, nil, true},
		{"anon reads category", anon, ActionRead, ResourceCategory, nil, true},
		{"anon reads genre", anon, ActionRead, ResourceGenre, nil, true},
		{"anon lists reviews", anon, ActionRead, ResourceReview, nil, true},
		{"anon reads comment", anon, ActionRead, ResourceComment, nil, true},

		// Review/comment creation needs an account.
		{"anon creates review", anon, ActionCreate, ResourceReview, nil, false},
		{"anon creates comment", anon, ActionCreate, ResourceComment, nil, false},
		{"user creates review", user, ActionCreate, ResourceReview, nil, true},
		{"moderator creates comment", moderator, ActionCreate, ResourceComment, nil, true},
		{"admin creates review", admin, ActionCreate, ResourceReview, nil, true},

		// Own content.
		{"user updates own review", user, ActionUpdate, ResourceReview, &own, true},
		{"user deletes own comment", user, ActionDelete, ResourceComment, &own, true},
		{"anon deletes review", anon, ActionDelete, ResourceReview, &someoneElse, false},

		// Other people's content.
		{"user deletes others review", user, ActionDelete, ResourceReview, &someoneElse, false},
		{"user updates others comment", user, ActionUpdate, ResourceComment, &someoneElse, false},
		{"user with unknown owner", user, ActionDelete, ResourceReview, nil, false},
		{"moderator deletes others review", moderator, ActionDelete, ResourceReview, &someoneElse, true},
		{"moderator updates others comment", moderator, ActionUpdate, ResourceComment, &someoneElse, true},
		{"admin deletes others review", admin, ActionDelete, ResourceReview, &someoneElse, true},

		// Catalog writes are admin only.
		{"user creates category", user, ActionCreate, ResourceCategory, nil, false},
		{"moderator deletes genre", moderator, ActionDelete, ResourceGenre, nil, false},
		{"moderator updates title", moderator, ActionUpdate, ResourceTitle, nil, false},
		{"admin creates title", admin, ActionCreate, ResourceTitle, nil, true},
		{"admin deletes category", admin, ActionDelete, ResourceCategory, nil, true},

		// User management is admin only.
		{"anon lists users", anon, ActionRead, ResourceUser, nil, false},
		{"user lists users", user, ActionRead, ResourceUser, nil, false},
		{"moderator patches user", moderator, ActionUpdate, ResourceUser, nil, false},
		{"admin deletes user", admin, ActionDelete, ResourceUser, nil, true},

		// Own profile.
		{"anon reads profile", anon, ActionRead, ResourceProfile, nil, false},
		{"user reads profile", user, ActionRead, ResourceProfile, nil, true},
		{"moderator updates profile", moderator, ActionUpdate, ResourceProfile, nil, true},
		{"user deletes profile", user, ActionDelete, ResourceProfile, nil, false},

		{"unknown resource", admin, ActionRead, Resource("bogus"), nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.subject, tc.action, tc.resource, tc.owner))
		})
	}
}

func TestAuthorize_UnknownRoleIsTreatedAsUser(t *testing.T) {
	s := subjectWith(models.Role("superhero"))
	other := uuid.New()

	assert.True(t, Authorize(s, ActionCreate, ResourceReview, nil))
	assert.False(t, Authorize(s, ActionDelete, ResourceReview, &other))
	assert.False(t, Authorize(s, ActionCreate, ResourceTitle, nil))
}

func TestNeedsOwner(t *testing.T) {
	assert.True(t, NeedsOwner(subjectWith(models.RoleUser), ActionDelete, ResourceReview))
	assert.True(t, NeedsOwner(subjectWith(models.RoleUser), ActionUpdate, ResourceComment))
	assert.False(t, NeedsOwner(subjectWith(models.RoleModerator), ActionDelete, ResourceReview))
	assert.False(t, NeedsOwner(subjectWith(models.RoleAdmin), ActionUpdate, ResourceComment))
	assert.False(t, NeedsOwner(Anonymous(), ActionDelete, ResourceReview))
	assert.False(t, NeedsOwner(subjectWith(models.RoleUser), ActionRead, ResourceReview))
	assert.False(t, NeedsOwner(subjectWith(models.RoleUser), ActionDelete, ResourceTitle))
}
