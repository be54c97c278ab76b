package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

// TitleInput is the create payload. Genres and Category are slugs.
type TitleInput struct {
	Name        string
	Year        int
	Description string
	Genres      []string
	Category    string
}

// TitlePatch carries the fields present in a partial update. An empty
// Category clears it; a non-nil Genres replaces the whole set.
type TitlePatch struct {
	Name        *string
	Year        *int
	Description *string
	Genres      *[]string
	Category    *string
}

type CatalogService struct {
	catalog repository.CatalogRepository
	now     func() time.Time
}

func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog, now: time.Now}
}

func (s *CatalogService) ListCategories(ctx context.Context, search string) ([]models.Category, error) {
	return s.catalog.ListCategories(ctx, search)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	if err := validateNamed(name, slug); err != nil {
		return nil, err
	}
	category := &models.Category{Name: name, Slug: slug}
	if err := s.catalog.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: category with this name or slug already exists", ErrConflict)
		}
		return nil, err
	}
	logger.Log.Info("Category created", zap.String("slug", slug))
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.catalog.DeleteCategory(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: category %q", ErrNotFound, slug)
		}
		return err
	}
	logger.Log.Info("Category deleted", zap.String("slug", slug))
	return nil
}

func (s *CatalogService) ListGenres(ctx context.Context, search string) ([]models.Genre, error) {
	return s.catalog.ListGenres(ctx, search)
}

func (s *CatalogService) CreateGenre(ctx context.Context, name, slug string) (*models.Genre, error) {
	if err := validateNamed(name, slug); err != nil {
		return nil, err
	}
	genre := &models.Genre{Name: name, Slug: slug}
	if err := s.catalog.CreateGenre(ctx, genre); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: genre with this name or slug already exists", ErrConflict)
		}
		return nil, err
	}
	logger.Log.Info("Genre created", zap.String("slug", slug))
	return genre, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, slug string) error {
	if err := s.catalog.DeleteGenre(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: genre %q", ErrNotFound, slug)
		}
		return err
	}
	logger.Log.Info("Genre deleted", zap.String("slug", slug))
	return nil
}

// ListTitles returns titles matching filter, each with its current rating.
func (s *CatalogService) ListTitles(ctx context.Context, filter repository.TitleFilter) ([]models.Title, error) {
	return s.catalog.ListTitles(ctx, filter)
}

func (s *CatalogService) GetTitle(ctx context.Context, id uint) (*models.Title, error) {
	title, err := s.catalog.FindTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, fmt.Errorf("%w: title %d", ErrNotFound, id)
	}
	return title, nil
}

func (s *CatalogService) CreateTitle(ctx context.Context, in TitleInput) (*models.Title, error) {
	if err := validateRequiredText("name", in.Name); err != nil {
		return nil, err
	}
	if err := validateMaxLength("name", in.Name, maxTitleLength); err != nil {
		return nil, err
	}
	if err := s.validateYear(in.Year); err != nil {
		return nil, err
	}

	genres, err := s.resolveGenres(ctx, in.Genres)
	if err != nil {
		return nil, err
	}

	title := &models.Title{Name: in.Name, Year: in.Year, Description: in.Description}
	if in.Category != "" {
		category, err := s.resolveCategory(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		title.CategoryID = &category.ID
	}

	if err := s.catalog.CreateTitle(ctx, title, genres); err != nil {
		return nil, err
	}

	logger.Log.Info("Title created",
		zap.Uint("title_id", title.ID),
		zap.String("name", title.Name),
	)
	return s.GetTitle(ctx, title.ID)
}

func (s *CatalogService) UpdateTitle(ctx context.Context, id uint, patch TitlePatch) (*models.Title, error) {
	fields := make(map[string]interface{})

	if patch.Name != nil {
		if err := validateRequiredText("name", *patch.Name); err != nil {
			return nil, err
		}
		if err := validateMaxLength("name", *patch.Name, maxTitleLength); err != nil {
			return nil, err
		}
		fields["name"] = *patch.Name
	}
	if patch.Year != nil {
		if err := s.validateYear(*patch.Year); err != nil {
			return nil, err
		}
		fields["year"] = *patch.Year
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		if *patch.Category == "" {
			fields["category_id"] = nil
		} else {
			category, err := s.resolveCategory(ctx, *patch.Category)
			if err != nil {
				return nil, err
			}
			fields["category_id"] = category.ID
		}
	}

	var genres []models.Genre
	if patch.Genres != nil {
		var err error
		if genres, err = s.resolveGenres(ctx, *patch.Genres); err != nil {
			return nil, err
		}
		if genres == nil {
			genres = []models.Genre{}
		}
	}

	if err := s.catalog.UpdateTitle(ctx, id, fields, genres); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: title %d", ErrNotFound, id)
		}
		return nil, err
	}

	logger.Log.Info("Title updated", zap.Uint("title_id", id))
	return s.GetTitle(ctx, id)
}

func (s *CatalogService) DeleteTitle(ctx context.Context, id uint) error {
	if err := s.catalog.DeleteTitle(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: title %d", ErrNotFound, id)
		}
		return err
	}
	logger.Log.Info("Title deleted", zap.Uint("title_id", id))
	return nil
}

func (s *CatalogService) validateYear(year int) error {
	if current := s.now().Year(); year > current {
		return fmt.Errorf("%w: year must not be later than %d", ErrValidation, current)
	}
	return nil
}

func (s *CatalogService) resolveCategory(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.catalog.FindCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, slug)
	}
	return category, nil
}

// resolveGenres maps slugs to genres, rejecting unknown ones. Duplicates collapse.
func (s *CatalogService) resolveGenres(ctx context.Context, slugs []string) ([]models.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	unique := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if !seen[slug] {
			seen[slug] = true
			unique = append(unique, slug)
		}
	}

	genres, err := s.catalog.FindGenresBySlugs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(unique) {
		found := make(map[string]bool, len(genres))
		for _, g := range genres {
			found[g.Slug] = true
		}
		for _, slug := range unique {
			if !found[slug] {
				return nil, fmt.Errorf("%w: unknown genre %q", ErrValidation, slug)
			}
		}
	}
	return genres, nil
}

func validateNamed(name, slug string) error {
	if err := validateRequiredText("name", name); err != nil {
		return err
	}
	if err := validateMaxLength("name", name, maxTitleLength); err != nil {
		return err
	}
	return validateSlug(slug)
}
