// Package policy holds the role-based access decision table. It is pure:
// callers supply the subject, the action, the resource kind and, for
// owned resources, the owner id.
package policy

import (
	"github.com/google/uuid"
	"github.com/mvlbulankin/yamdb-final/internal/models"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceGenre    Resource = "genre"
	ResourceTitle    Resource = "title"
	ResourceReview   Resource = "review"
	ResourceComment  Resource = "comment"
	ResourceUser     Resource = "user"
	ResourceProfile  Resource = "profile"
)

// Subject is the caller. The zero value is the anonymous caller.
type Subject struct {
	UserID   uuid.UUID
	Username string
	Role     models.Role
}

func Anonymous() Subject { return Subject{} }

func (s Subject) Authenticated() bool {
	return s.UserID != uuid.Nil
}

func (s Subject) IsAdmin() bool {
	return s.Authenticated() && s.Role == models.RoleAdmin
}

func (s Subject) IsModerator() bool {
	return s.Authenticated() && s.Role == models.RoleModerator
}

// Authorize decides whether subject may perform action on resource.
// owner is the id of the resource's author and is only consulted for
// update/delete of reviews and comments; nil means unknown.
func Authorize(subject Subject, action Action, resource Resource, owner *uuid.UUID) bool {
	switch resource {
	case ResourceCategory, ResourceGenre, ResourceTitle:
		if action == ActionRead {
			return true
		}
		return subject.IsAdmin()

	case ResourceReview, ResourceComment:
		switch action {
		case ActionRead:
			return true
		case ActionCreate:
			return subject.Authenticated()
		case ActionUpdate, ActionDelete:
			if subject.IsAdmin() || subject.IsModerator() {
				return true
			}
			return subject.Authenticated() && owner != nil && *owner == subject.UserID
		}
		return false

	case ResourceUser:
		return subject.IsAdmin()

	case ResourceProfile:
		// Own profile only; role stays read-only, enforced by the user service.
		return subject.Authenticated() && (action == ActionRead || action == ActionUpdate)
	}

	return false
}

// NeedsOwner reports whether the decision for subject can depend on the
// resource owner, so callers can skip loading it otherwise.
func NeedsOwner(subject Subject, action Action, resource Resource) bool {
	if resource != ResourceReview && resource != ResourceComment {
		return false
	}
	if action != ActionUpdate && action != ActionDelete {
		return false
	}
	return subject.Authenticated() && !subject.IsAdmin() && !subject.IsModerator()
}
