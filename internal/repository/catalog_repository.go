package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TitleFilter narrows title listings. Zero values mean "no filter".
type TitleFilter struct {
	Name     string // case-insensitive substring
	Genre    string // exact genre slug
	Category string // exact category slug
	Year     *int
}

type CatalogRepository interface {
	ListCategories(ctx context.Context, search string) ([]models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, slug string) error

	ListGenres(ctx context.Context, search string) ([]models.Genre, error)
	FindGenresBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error)
	CreateGenre(ctx context.Context, genre *models.Genre) error
	DeleteGenre(ctx context.Context, slug string) error

	ListTitles(ctx context.Context, filter TitleFilter) ([]models.Title, error)
	FindTitle(ctx context.Context, id uint) (*models.Title, error)
	CreateTitle(ctx context.Context, title *models.Title, genres []models.Genre) error
	UpdateTitle(ctx context.Context, id uint, fields map[string]interface{}, genres []models.Genre) error
	DeleteTitle(ctx context.Context, id uint) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context, search string) ([]models.Category, error) {
	var categories []models.Category
	err := nameSearch(r.db.WithContext(ctx), search).Order("id DESC").Find(&categories).Error
	return categories, err
}

func (r *catalogRepository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(category).Error)
}

// DeleteCategory detaches the category's titles before removing it.
func (r *catalogRepository) DeleteCategory(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.Title{}).Where("category_id = ?", category.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
}

func (r *catalogRepository) ListGenres(ctx context.Context, search string) ([]models.Genre, error) {
	var genres []models.Genre
	err := nameSearch(r.db.WithContext(ctx), search).Order("id DESC").Find(&genres).Error
	return genres, err
}

func (r *catalogRepository) FindGenresBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	var genres []models.Genre
	if len(slugs) == 0 {
		return genres, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("id").Find(&genres).Error
	return genres, err
}

func (r *catalogRepository) CreateGenre(ctx context.Context, genre *models.Genre) error {
	return translate(r.db.WithContext(ctx).Create(genre).Error)
}

func (r *catalogRepository) DeleteGenre(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre models.Genre
		if err := tx.Where("slug = ?", slug).First(&genre).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("genre_id = ?", genre.ID).Delete(&models.TitleGenre{}).Error; err != nil {
			return err
		}
		return tx.Delete(&genre).Error
	})
}

// ListTitles loads titles and their ratings inside one read-only transaction.
// On Postgres it runs at REPEATABLE READ so the page and its aggregates see
// the same snapshot; SQLite transactions are serializable already.
func (r *catalogRepository) ListTitles(ctx context.Context, filter TitleFilter) ([]models.Title, error) {
	var titles []models.Title
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Title{}).Preload("Category").Preload("Genres")

		if filter.Name != "" {
			q = q.Where(`LOWER(titles.name) LIKE ? ESCAPE '\'`, containsPattern(filter.Name))
		}
		if filter.Genre != "" {
			q = q.Where(`EXISTS (SELECT 1 FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
				WHERE tg.title_id = titles.id AND g.slug = ?)`, filter.Genre)
		}
		if filter.Category != "" {
			q = q.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", filter.Category)
		}
		if filter.Year != nil {
			q = q.Where("titles.year = ?", *filter.Year)
		}

		if err := q.Order("titles.id DESC").Find(&titles).Error; err != nil {
			return err
		}
		return attachRatings(tx, titles)
	}, snapshotOptions(r.db.Dialector.Name())...)
	if err != nil {
		return nil, err
	}
	return titles, nil
}

func (r *catalogRepository) FindTitle(ctx context.Context, id uint) (*models.Title, error) {
	var title models.Title
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Category").Preload("Genres").First(&title, id).Error; err != nil {
			return err
		}
		titles := []models.Title{title}
		if err := attachRatings(tx, titles); err != nil {
			return err
		}
		title = titles[0]
		return nil
	}, snapshotOptions(r.db.Dialector.Name())...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &title, nil
}

func (r *catalogRepository) CreateTitle(ctx context.Context, title *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(title).Error; err != nil {
			return translate(err)
		}
		return linkGenres(tx, title.ID, genres)
	})
}

// UpdateTitle applies fields; a non-nil genres slice replaces the title's genre set.
func (r *catalogRepository) UpdateTitle(ctx context.Context, id uint, fields map[string]interface{}, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Title{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		if len(fields) > 0 {
			if err := tx.Model(&models.Title{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return translate(err)
			}
		}

		if genres != nil {
			if err := tx.Where("title_id = ?", id).Delete(&models.TitleGenre{}).Error; err != nil {
				return err
			}
			return linkGenres(tx, id, genres)
		}
		return nil
	})
}

// DeleteTitle removes the title with its reviews, their comments and genre links.
func (r *catalogRepository) DeleteTitle(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.TitleGenre{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Title{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func linkGenres(tx *gorm.DB, titleID uint, genres []models.Genre) error {
	if len(genres) == 0 {
		return nil
	}
	links := make([]models.TitleGenre, 0, len(genres))
	for _, g := range genres {
		links = append(links, models.TitleGenre{TitleID: titleID, GenreID: g.ID})
	}
	return tx.Create(&links).Error
}

func nameSearch(db *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return db
	}
	return db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(search))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern turns user text into a case-folded LIKE substring pattern
// in which %, _ and \ match only themselves.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}

// snapshotOptions returns the transaction options for multi-statement reads.
func snapshotOptions(dialect string) []*sql.TxOptions {
	if dialect != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}
