package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mvlbulankin/yamdb-final/internal/handler"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/service"
	"github.com/mvlbulankin/yamdb-final/internal/testutil"
	"github.com/mvlbulankin/yamdb-final/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testSecret = "test-secret-key"

// APIIntegrationTestSuite drives the full router against SQLite.
type APIIntegrationTestSuite struct {
	suite.Suite
	testDB    *testutil.TestDatabase
	mail      *testutil.RecordingSender
	events    *testutil.RecordingPublisher
	signer    *utils.JWTSigner
	router    *gin.Engine
	admin     *models.User
	moderator *models.User
}

func (s *APIIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.signer = utils.NewJWTSigner(testSecret, time.Hour)

	codes, err := utils.NewCodeGenerator(testSecret, 72*time.Hour)
	require.NoError(s.T(), err)

	s.mail = &testutil.RecordingSender{}
	s.events = &testutil.RecordingPublisher{}

	userRepo := repository.NewUserRepository(s.testDB.DB)
	s.router = handler.NewRouter(handler.Dependencies{
		Auth:     service.NewAuthService(userRepo, codes, s.signer, s.mail),
		Users:    service.NewUserService(userRepo),
		Catalog:  service.NewCatalogService(repository.NewCatalogRepository(s.testDB.DB)),
		Reviews:  service.NewReviewService(repository.NewReviewRepository(s.testDB.DB), s.events),
		Verifier: s.signer,
		Lookup:   userRepo,
	})
}

func (s *APIIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *APIIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.admin = testutil.CreateUser(s.T(), s.testDB.DB, "admin", models.RoleAdmin)
	s.moderator = testutil.CreateUser(s.T(), s.testDB.DB, "moder", models.RoleModerator)
}

func (s *APIIntegrationTestSuite) tokenFor(user *models.User) string {
	token, err := s.signer.Sign(user)
	require.NoError(s.T(), err)
	return token
}

func (s *APIIntegrationTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (s *APIIntegrationTestSuite) lastCode() string {
	msg, ok := s.mail.Last()
	require.True(s.T(), ok, "no confirmation mail sent")
	code := strings.TrimPrefix(msg.Body, "Your confirmation code: ")
	return strings.TrimSuffix(code, ".")
}

func (s *APIIntegrationTestSuite) TestSignupAndTokenExchange() {
	t := s.T()

	w := s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "bob", "email": "bob@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]string](t, w)
	assert.Equal(t, "bob", body["username"])
	assert.Equal(t, "bob@example.com", body["email"])

	msg, _ := s.mail.Last()
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "Confirmation code", msg.Subject)

	w = s.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "bob", "confirmation_code": "0-00000000000000000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode[handler.ErrorResponse](t, w)
	assert.NotEmpty(t, errBody.Message)

	w = s.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "bob", "confirmation_code": s.lastCode()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[map[string]string](t, w)["token"]
	assert.NotEmpty(t, token)

	w = s.do(http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", decode[handler.UserResponse](t, w).Username)
}

func (s *APIIntegrationTestSuite) TestSignupConflictsAndUnknownUser() {
	t := s.T()

	w := s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "admin", "email": "other@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "me", "email": "me@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "ghost", "confirmation_code": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *APIIntegrationTestSuite) TestReviewPermissions() {
	t := s.T()
	title := testutil.CreateTitle(t, s.testDB.DB, "Dune", 1965, nil)
	alice := testutil.CreateUser(t, s.testDB.DB, "alice", models.RoleUser)
	carol := testutil.CreateUser(t, s.testDB.DB, "carol", models.RoleUser)
	path := "/api/v1/titles/" + uintStr(title.ID) + "/reviews"

	w := s.do(http.MethodPost, path, "", gin.H{"text": "great", "score": 9})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, path, s.tokenFor(alice), gin.H{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	review := decode[handler.ReviewResponse](t, w)
	assert.Equal(t, "alice", review.Author)

	w = s.do(http.MethodPost, path, s.tokenFor(alice), gin.H{"text": "again", "score": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reviewPath := path + "/" + uintStr(review.ID)
	w = s.do(http.MethodDelete, reviewPath, s.tokenFor(carol), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, reviewPath, s.tokenFor(alice), gin.H{"score": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[handler.ReviewResponse](t, w).Score)

	w = s.do(http.MethodDelete, reviewPath, s.tokenFor(s.moderator), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *APIIntegrationTestSuite) TestScoreBounds() {
	t := s.T()
	title := testutil.CreateTitle(t, s.testDB.DB, "Dune", 1965, nil)
	path := "/api/v1/titles/" + uintStr(title.ID) + "/reviews"

	for i, score := range []int{0, 11} {
		user := testutil.CreateUser(t, s.testDB.DB, "bounds"+uintStr(uint(i)), models.RoleUser)
		w := s.do(http.MethodPost, path, s.tokenFor(user), gin.H{"text": "x", "score": score})
		assert.Equal(t, http.StatusBadRequest, w.Code, "score %d", score)
	}
}

func (s *APIIntegrationTestSuite) TestRatingInTitleResponses() {
	t := s.T()
	title := testutil.CreateTitle(t, s.testDB.DB, "Dune", 1965, nil)
	titlePath := "/api/v1/titles/" + uintStr(title.ID)

	w := s.do(http.MethodGet, titlePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[handler.TitleResponse](t, w).Rating)

	for i, score := range []int{4, 8} {
		user := testutil.CreateUser(t, s.testDB.DB, "rater"+uintStr(uint(i)), models.RoleUser)
		w = s.do(http.MethodPost, titlePath+"/reviews", s.tokenFor(user), gin.H{"text": "ok", "score": score})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = s.do(http.MethodGet, titlePath, "", nil)
	rating := decode[handler.TitleResponse](t, w).Rating
	require.NotNil(t, rating)
	assert.InDelta(t, 6.0, *rating, 1e-9)

	events := s.events.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.NotNil(t, last.Rating)
	assert.InDelta(t, 6.0, *last.Rating, 1e-9)
}

func (s *APIIntegrationTestSuite) TestCatalogAdminOnlyAndFilters() {
	t := s.T()
	user := testutil.CreateUser(t, s.testDB.DB, "alice", models.RoleUser)

	w := s.do(http.MethodPost, "/api/v1/categories", s.tokenFor(user), gin.H{"name": "Books", "slug": "books"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := s.tokenFor(s.admin)
	w = s.do(http.MethodPost, "/api/v1/categories", adminToken, gin.H{"name": "Books", "slug": "books"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/api/v1/genres", adminToken, gin.H{"name": "Sci-Fi", "slug": "sci-fi"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/api/v1/genres", adminToken, gin.H{"name": "Drama", "slug": "drama"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/titles", adminToken, gin.H{
		"name": "Dune", "year": 1965, "genre": []string{"sci-fi"}, "category": "books",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dune := decode[handler.TitleResponse](t, w)
	require.NotNil(t, dune.Category)
	assert.Equal(t, "books", dune.Category.Slug)
	require.Len(t, dune.Genre, 1)

	w = s.do(http.MethodPost, "/api/v1/titles", adminToken, gin.H{"name": "Hamlet", "year": 1603, "genre": []string{"drama"}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/titles", adminToken, gin.H{"name": "Future", "year": time.Now().Year() + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/titles", adminToken, gin.H{"name": "Ghost", "year": 2000, "genre": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cases := map[string]int{
		"":                       2,
		"?genre=sci-fi":          1,
		"?category=books":        1,
		"?year=1603":             1,
		"?name=dun":              1,
		"?genre=drama&year=1965": 0,
	}
	for query, want := range cases {
		w = s.do(http.MethodGet, "/api/v1/titles"+query, "", nil)
		require.Equal(t, http.StatusOK, w.Code, query)
		assert.Equal(t, want, decode[handler.ListResponse[handler.TitleResponse]](t, w).Count, query)
	}

	w = s.do(http.MethodGet, "/api/v1/titles?year=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/categories/books", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/v1/titles/"+uintStr(dune.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[handler.TitleResponse](t, w).Category)
}

func (s *APIIntegrationTestSuite) TestPatchMeIgnoresRole() {
	t := s.T()
	user := testutil.CreateUser(t, s.testDB.DB, "alice", models.RoleUser)

	w := s.do(http.MethodPatch, "/api/v1/users/me", s.tokenFor(user), gin.H{"role": "admin", "bio": "reader"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[handler.UserResponse](t, w)
	assert.Equal(t, models.RoleUser, resp.Role)
	assert.Equal(t, "reader", resp.Bio)

	w = s.do(http.MethodGet, "/api/v1/users", s.tokenFor(user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (s *APIIntegrationTestSuite) TestAdminManagesUsers() {
	t := s.T()
	adminToken := s.tokenFor(s.admin)

	w := s.do(http.MethodPost, "/api/v1/users", adminToken, gin.H{"username": "newbie", "email": "newbie@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.RoleUser, decode[handler.UserResponse](t, w).Role)

	w = s.do(http.MethodPatch, "/api/v1/users/newbie", adminToken, gin.H{"role": "moderator"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleModerator, decode[handler.UserResponse](t, w).Role)

	w = s.do(http.MethodGet, "/api/v1/users?search=newbie", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[handler.ListResponse[handler.UserResponse]](t, w).Count)

	w = s.do(http.MethodDelete, "/api/v1/users/newbie", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/v1/users/newbie", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *APIIntegrationTestSuite) TestCommentPathConsistency() {
	t := s.T()
	dune := testutil.CreateTitle(t, s.testDB.DB, "Dune", 1965, nil)
	hamlet := testutil.CreateTitle(t, s.testDB.DB, "Hamlet", 1603, nil)
	alice := testutil.CreateUser(t, s.testDB.DB, "alice", models.RoleUser)
	review := testutil.CreateReview(t, s.testDB.DB, dune, alice, 8)
	comment := testutil.CreateComment(t, s.testDB.DB, review, alice, "agreed")

	good := "/api/v1/titles/" + uintStr(dune.ID) + "/reviews/" + uintStr(review.ID) + "/comments/" + uintStr(comment.ID)
	bad := "/api/v1/titles/" + uintStr(hamlet.ID) + "/reviews/" + uintStr(review.ID) + "/comments/" + uintStr(comment.ID)

	w := s.do(http.MethodGet, good, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, bad, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, bad, s.tokenFor(alice), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/titles/"+uintStr(dune.ID)+"/reviews/"+uintStr(review.ID)+"/comments", s.tokenFor(alice), gin.H{"text": "me too"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/titles/"+uintStr(dune.ID)+"/reviews/"+uintStr(review.ID)+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[handler.ListResponse[handler.CommentResponse]](t, w).Count)
}

func (s *APIIntegrationTestSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *APIIntegrationTestSuite) TestActivityFeedUnavailableWithoutRedis() {
	w := s.do(http.MethodGet, "/api/v1/ws/activity", "", nil)
	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)

	user := testutil.CreateUser(s.T(), s.testDB.DB, "watcher", models.RoleUser)
	w = s.do(http.MethodGet, "/api/v1/ws/activity", s.tokenFor(user), nil)
	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func (s *APIIntegrationTestSuite) TestMissingRequiredFieldsRejected() {
	t := s.T()
	adminToken := s.tokenFor(s.admin)

	w := s.do(http.MethodPost, "/api/v1/titles", adminToken, gin.H{"name": "No Year"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Message, "year is required")

	w = s.do(http.MethodGet, "/api/v1/titles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[handler.ListResponse[handler.TitleResponse]](t, w).Count)

	w = s.do(http.MethodPost, "/api/v1/categories", adminToken, gin.H{"name": "Books"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, w).Message, "slug is required")

	w = s.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, w).Message, "confirmation_code is required")

	w = s.do(http.MethodPost, "/api/v1/categories", adminToken, gin.H{"name": "Books", "slug": strings.Repeat("b", 51)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, w).Message, "slug must be at most 50")

	title := testutil.CreateTitle(t, s.testDB.DB, "Dune", 1965, nil)
	alice := testutil.CreateUser(t, s.testDB.DB, "alice", models.RoleUser)
	review := testutil.CreateReview(t, s.testDB.DB, title, alice, 8)
	commentsPath := "/api/v1/titles/" + uintStr(title.ID) + "/reviews/" + uintStr(review.ID) + "/comments"

	w = s.do(http.MethodPost, commentsPath, s.tokenFor(alice), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[handler.ErrorResponse](t, w).Message, "text is required")
}

func TestAPIIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(APIIntegrationTestSuite))
}
