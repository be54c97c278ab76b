package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 10
)

// Review is unique per (title, author); uq_review_title_author is the
// storage-level guard against concurrent duplicate inserts.
type Review struct {
	ID       uint      `gorm:"primaryKey"`
	TitleID  uint      `gorm:"not null;uniqueIndex:uq_review_title_author;index"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_review_title_author"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null;check:chk_review_score,score >= 1 AND score <= 10"`
	PubDate  time.Time `gorm:"not null;index;<-:create"`

	Title  Title `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE"`
	Author User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	ReviewID uint      `gorm:"not null;index"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"not null;index;<-:create"`

	Review Review `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	Author User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}
