package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

type SlugRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=50"`
}

type CreateTitleRequest struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        int      `json:"year" binding:"required"`
	Description string   `json:"description"`
	Genre       []string `json:"genre"`
	Category    string   `json:"category"`
}

type PatchTitleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

// GET /api/v1/categories?search=
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]SlugResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, SlugResponse{Name: cat.Name, Slug: cat.Slug})
	}
	c.JSON(http.StatusOK, newList(out))
}

// POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req SlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SlugResponse{Name: category.Name, Slug: category.Slug})
}

// DELETE /api/v1/categories/:slug
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalogService.DeleteCategory(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/genres?search=
func (h *CatalogHandler) ListGenres(c *gin.Context) {
	genres, err := h.catalogService.ListGenres(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]SlugResponse, 0, len(genres))
	for _, g := range genres {
		out = append(out, SlugResponse{Name: g.Name, Slug: g.Slug})
	}
	c.JSON(http.StatusOK, newList(out))
}

// POST /api/v1/genres
func (h *CatalogHandler) CreateGenre(c *gin.Context) {
	var req SlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	genre, err := h.catalogService.CreateGenre(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SlugResponse{Name: genre.Name, Slug: genre.Slug})
}

// DELETE /api/v1/genres/:slug
func (h *CatalogHandler) DeleteGenre(c *gin.Context) {
	if err := h.catalogService.DeleteGenre(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/titles?name=&genre=&category=&year=
func (h *CatalogHandler) ListTitles(c *gin.Context) {
	filter := repository.TitleFilter{
		Name:     c.Query("name"),
		Genre:    c.Query("genre"),
		Category: c.Query("category"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, fmt.Errorf("%w: year must be an integer", service.ErrValidation))
			return
		}
		filter.Year = &year
	}

	titles, err := h.catalogService.ListTitles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(titleResponses(titles)))
}

// GET /api/v1/titles/:title_id
func (h *CatalogHandler) GetTitle(c *gin.Context) {
	id, err := idParam(c, "title_id")
	if err != nil {
		respondError(c, err)
		return
	}
	title, err := h.catalogService.GetTitle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTitleResponse(title))
}

// POST /api/v1/titles
func (h *CatalogHandler) CreateTitle(c *gin.Context) {
	var req CreateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	title, err := h.catalogService.CreateTitle(c.Request.Context(), service.TitleInput{
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		Genres:      req.Genre,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTitleResponse(title))
}

// PATCH /api/v1/titles/:title_id
func (h *CatalogHandler) PatchTitle(c *gin.Context) {
	id, err := idParam(c, "title_id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req PatchTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	title, err := h.catalogService.UpdateTitle(c.Request.Context(), id, service.TitlePatch{
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		Genres:      req.Genre,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTitleResponse(title))
}

// DELETE /api/v1/titles/:title_id
func (h *CatalogHandler) DeleteTitle(c *gin.Context) {
	id, err := idParam(c, "title_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.catalogService.DeleteTitle(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func titleResponses(titles []models.Title) []TitleResponse {
	out := make([]TitleResponse, 0, len(titles))
	for i := range titles {
		out = append(out, toTitleResponse(&titles[i]))
	}
	return out
}
