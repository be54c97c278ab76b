package models

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"type:varchar(256);uniqueIndex;not null" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"type:varchar(256);uniqueIndex;not null" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

// Title is a reviewable work. Rating is never stored; it is filled from
// the reviews table on every read.
type Title struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(256);not null;index"`
	Year        int       `gorm:"not null;index"`
	Description string    `gorm:"type:text"`
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Genres      []Genre   `gorm:"many2many:title_genres"`

	Rating *float64 `gorm:"-"`
}

// TitleGenre is the join entity between titles and genres.
type TitleGenre struct {
	TitleID uint `gorm:"primaryKey"`
	GenreID uint `gorm:"primaryKey"`
}

func (TitleGenre) TableName() string {
	return "title_genres"
}
