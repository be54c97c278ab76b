package broker

import (
	"context"
	"time"
)

// ActivityChannel is the Redis channel review and comment events go to.
const ActivityChannel = "yamdb:activity"

type EventType string

const (
	ReviewCreated  EventType = "review.created"
	ReviewUpdated  EventType = "review.updated"
	ReviewDeleted  EventType = "review.deleted"
	CommentCreated EventType = "comment.created"
	CommentDeleted EventType = "comment.deleted"
)

// Event describes a write on the review side of the catalog.
type Event struct {
	Type      EventType `json:"type"`
	TitleID   uint      `json:"title_id"`
	ReviewID  uint      `json:"review_id"`
	CommentID uint      `json:"comment_id,omitempty"`
	Author    string    `json:"author"`
	Score     int       `json:"score,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber streams events until ctx is cancelled; the channel is closed then.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
