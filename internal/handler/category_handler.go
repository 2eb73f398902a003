package handler

import (
	"github.com/cardledger/internal/middleware"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/pkg/response"
	"github.com/gin-gonic/gin"
)

// CategoryHandler handles category API requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// GetCategories lists the user's categories
// GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.List(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, categories)
}

// CreateCategory adds a category
// POST /categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}

	category, err := h.categoryService.Create(middleware.GetUserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, category)
}

// RenameCategory changes a category's name
// PATCH /categories/:id
func (h *CategoryHandler) RenameCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}

	category, err := h.categoryService.Rename(middleware.GetUserID(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, category)
}

// DeleteCategory removes a category; its usages become uncategorized
// DELETE /categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.categoryService.Delete(middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Message(c, "삭제되었습니다.")
}

// RegisterRoutes registers category routes
func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	categories := rg.Group("/categories")
	categories.Use(authMiddleware, middleware.WriteLoggerMiddleware())
	{
		categories.GET("", h.GetCategories)
		categories.POST("", h.CreateCategory)
		categories.PATCH("/:id", h.RenameCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}
