package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/policy"
	"github.com/mvlbulankin/yamdb-final/internal/service"
)

// OwnerResolver returns the author of the resource addressed by the
// request. A missing resource must be reported as service.ErrNotFound.
type OwnerResolver func(c *gin.Context) (uuid.UUID, error)

// Authorizer evaluates the policy table before a handler runs.
type Authorizer struct {
	respond ErrorResponder
}

func NewAuthorizer(respond ErrorResponder) *Authorizer {
	return &Authorizer{respond: respond}
}

// Require allows the request only if policy.Authorize does. owner may be
// nil for resources without an author.
func (a *Authorizer) Require(resource policy.Resource, action policy.Action, owner OwnerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := SubjectFrom(c)

		var ownerID *uuid.UUID
		if owner != nil && policy.NeedsOwner(subject, action, resource) {
			id, err := owner(c)
			if err != nil {
				a.respond(c, err)
				return
			}
			ownerID = &id
		}

		if policy.Authorize(subject, action, resource, ownerID) {
			c.Next()
			return
		}

		if !subject.Authenticated() {
			a.respond(c, fmt.Errorf("%w: credentials were not provided", service.ErrUnauthenticated))
			return
		}
		a.respond(c, fmt.Errorf("%w: %s %s", service.ErrPermissionDenied, action, resource))
	}
}
