package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/internal/metrics"
	"github.com/mvlbulankin/yamdb-final/internal/middleware"
	"github.com/mvlbulankin/yamdb-final/internal/policy"
	"github.com/mvlbulankin/yamdb-final/internal/service"
)

// Dependencies is everything the HTTP surface needs. RateLimiter and
// Activity are optional and stay nil without Redis.
type Dependencies struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Catalog  *service.CatalogService
	Reviews  *service.ReviewService
	Verifier middleware.TokenVerifier
	Lookup   middleware.UserLookup

	RateLimiter *middleware.RateLimiter
	Activity    broker.Subscriber

	CORSOrigins  []string
	IsProduction bool
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.HSTSMiddleware(deps.IsProduction))
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	Register(r.Group("/api/v1"), deps)
	return r
}

// Register mounts the versioned API on g.
func Register(g *gin.RouterGroup, deps Dependencies) {
	useJSONFieldNames()

	authH := NewAuthHandler(deps.Auth)
	userH := NewUserHandler(deps.Users)
	catalogH := NewCatalogHandler(deps.Catalog)
	reviewH := NewReviewHandler(deps.Reviews)
	activityH := NewActivityHandler(deps.Activity, deps.CORSOrigins)

	auth := g.Group("/auth")
	if deps.RateLimiter != nil {
		auth.Use(deps.RateLimiter.Middleware())
	}
	auth.POST("/signup", authH.Signup)
	auth.POST("/token", authH.Token)

	api := g.Group("")
	api.Use(middleware.Authenticate(deps.Verifier, deps.Lookup, respondError))
	authz := middleware.NewAuthorizer(respondError)

	allow := func(resource policy.Resource, action policy.Action) gin.HandlerFunc {
		return authz.Require(resource, action, nil)
	}

	users := api.Group("/users")
	users.GET("/me", allow(policy.ResourceProfile, policy.ActionRead), userH.Me)
	users.PATCH("/me", allow(policy.ResourceProfile, policy.ActionUpdate), userH.PatchMe)
	users.GET("", allow(policy.ResourceUser, policy.ActionRead), userH.List)
	users.POST("", allow(policy.ResourceUser, policy.ActionCreate), userH.Create)
	users.GET("/:username", allow(policy.ResourceUser, policy.ActionRead), userH.Get)
	users.PATCH("/:username", allow(policy.ResourceUser, policy.ActionUpdate), userH.Patch)
	users.DELETE("/:username", allow(policy.ResourceUser, policy.ActionDelete), userH.Delete)

	categories := api.Group("/categories")
	categories.GET("", allow(policy.ResourceCategory, policy.ActionRead), catalogH.ListCategories)
	categories.POST("", allow(policy.ResourceCategory, policy.ActionCreate), catalogH.CreateCategory)
	categories.DELETE("/:slug", allow(policy.ResourceCategory, policy.ActionDelete), catalogH.DeleteCategory)

	genres := api.Group("/genres")
	genres.GET("", allow(policy.ResourceGenre, policy.ActionRead), catalogH.ListGenres)
	genres.POST("", allow(policy.ResourceGenre, policy.ActionCreate), catalogH.CreateGenre)
	genres.DELETE("/:slug", allow(policy.ResourceGenre, policy.ActionDelete), catalogH.DeleteGenre)

	titles := api.Group("/titles")
	titles.GET("", allow(policy.ResourceTitle, policy.ActionRead), catalogH.ListTitles)
	titles.POST("", allow(policy.ResourceTitle, policy.ActionCreate), catalogH.CreateTitle)
	titles.GET("/:title_id", allow(policy.ResourceTitle, policy.ActionRead), catalogH.GetTitle)
	titles.PATCH("/:title_id", allow(policy.ResourceTitle, policy.ActionUpdate), catalogH.PatchTitle)
	titles.DELETE("/:title_id", allow(policy.ResourceTitle, policy.ActionDelete), catalogH.DeleteTitle)

	reviews := titles.Group("/:title_id/reviews")
	reviews.GET("", allow(policy.ResourceReview, policy.ActionRead), reviewH.ListReviews)
	reviews.POST("", allow(policy.ResourceReview, policy.ActionCreate), reviewH.CreateReview)
	reviews.GET("/:review_id", allow(policy.ResourceReview, policy.ActionRead), reviewH.GetReview)
	reviews.PATCH("/:review_id", authz.Require(policy.ResourceReview, policy.ActionUpdate, reviewH.reviewOwner), reviewH.PatchReview)
	reviews.DELETE("/:review_id", authz.Require(policy.ResourceReview, policy.ActionDelete, reviewH.reviewOwner), reviewH.DeleteReview)

	comments := reviews.Group("/:review_id/comments")
	comments.GET("", allow(policy.ResourceComment, policy.ActionRead), reviewH.ListComments)
	comments.POST("", allow(policy.ResourceComment, policy.ActionCreate), reviewH.CreateComment)
	comments.GET("/:comment_id", allow(policy.ResourceComment, policy.ActionRead), reviewH.GetComment)
	comments.PATCH("/:comment_id", authz.Require(policy.ResourceComment, policy.ActionUpdate, reviewH.commentOwner), reviewH.PatchComment)
	comments.DELETE("/:comment_id", authz.Require(policy.ResourceComment, policy.ActionDelete, reviewH.commentOwner), reviewH.DeleteComment)

	api.GET("/ws/activity", allow(policy.ResourceReview, policy.ActionRead), activityH.Stream)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
