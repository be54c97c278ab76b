package service

import (
	"context"
	"testing"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDatabase
	service *UserService
	ctx     context.Context
}

func (s *UserServiceTestSuite) SetupSuite() {
	s.testDB = testutil.SetupTestDatabase(s.T())
	s.service = NewUserService(repository.NewUserRepository(s.testDB.DB))
	s.ctx = context.Background()
}

func (s *UserServiceTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *UserServiceTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
}

func (s *UserServiceTestSuite) TestCreate() {
	user, err := s.service.Create(s.ctx, UserInput{Username: "alice", Email: "alice@example.com"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleUser, user.Role)

	_, err = s.service.Create(s.ctx, UserInput{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(s.T(), err, ErrConflict)

	_, err = s.service.Create(s.ctx, UserInput{Username: "bob", Email: "bob@example.com", Role: "superuser"})
	assert.ErrorIs(s.T(), err, ErrValidation)

	_, err = s.service.Create(s.ctx, UserInput{Username: "me", Email: "me@example.com"})
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *UserServiceTestSuite) TestAdminUpdateChangesRole() {
	testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)

	moderator := models.RoleModerator
	user, err := s.service.Update(s.ctx, "alice", UserPatch{Role: &moderator})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleModerator, user.Role)

	_, err = s.service.Update(s.ctx, "ghost", UserPatch{Role: &moderator})
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *UserServiceTestSuite) TestUpdateMeIgnoresRole() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)

	admin := models.RoleAdmin
	bio := "reader"
	user, err := s.service.UpdateMe(s.ctx, alice.ID, UserPatch{Role: &admin, Bio: &bio})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleUser, user.Role)
	assert.Equal(s.T(), "reader", user.Bio)
}

func (s *UserServiceTestSuite) TestUpdateMeConflict() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	testutil.CreateUser(s.T(), s.testDB.DB, "bob", models.RoleUser)

	taken := "bob@example.com"
	_, err := s.service.UpdateMe(s.ctx, alice.ID, UserPatch{Email: &taken})
	assert.ErrorIs(s.T(), err, ErrConflict)
}

func (s *UserServiceTestSuite) TestListAndDelete() {
	testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	testutil.CreateUser(s.T(), s.testDB.DB, "bob", models.RoleUser)

	all, err := s.service.List(s.ctx, "")
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)

	one, err := s.service.List(s.ctx, "bob")
	require.NoError(s.T(), err)
	assert.Len(s.T(), one, 1)

	require.NoError(s.T(), s.service.Delete(s.ctx, "bob"))
	assert.ErrorIs(s.T(), s.service.Delete(s.ctx, "bob"), ErrNotFound)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
