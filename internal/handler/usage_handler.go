package handler

import (
	"net/url"
	"strconv"

	"github.com/cardledger/internal/middleware"
	"github.com/cardledger/internal/models"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UsageHandler handles expense ledger API requests
type UsageHandler struct {
	usageService *service.UsageService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usageService *service.UsageService) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
	}
}

type usageListResponse struct {
	Items       []models.UsageResponse `json:"items"`
	TotalAmount decimal.Decimal        `json:"totalAmount"`
	Pagination  response.Pagination    `json:"pagination"`
}

// monthQuery returns the year/month filter. Both must be present and numeric,
// otherwise the listing is unfiltered.
func monthQuery(c *gin.Context) (int, int) {
	year, errY := strconv.Atoi(c.Query("year"))
	month, errM := strconv.Atoi(c.Query("month"))
	if errY != nil || errM != nil {
		return 0, 0
	}
	return year, month
}

// GetUsages lists one page of usages with the filtered total
// GET /usage?page=&year=&month=
func (h *UsageHandler) GetUsages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	year, month := monthQuery(c)

	result, err := h.usageService.List(middleware.GetUserID(c), service.ListQuery{
		Page:  page,
		Year:  year,
		Month: month,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]models.UsageResponse, len(result.Items))
	for i := range result.Items {
		items[i] = result.Items[i].ToResponse()
	}

	response.Success(c, usageListResponse{
		Items:       items,
		TotalAmount: result.TotalAmount,
		Pagination:  response.NewPagination(result.Total, result.Page, result.PageSize),
	})
}

// GetUsage returns one usage
// GET /usage/:id
func (h *UsageHandler) GetUsage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	usage, err := h.usageService.Get(middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, usage.ToResponse())
}

// CreateUsage records a usage
// POST /usage
func (h *UsageHandler) CreateUsage(c *gin.Context) {
	var req service.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}

	usage, err := h.usageService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, usage.ToResponse())
}

// UpdateUsage replaces a usage's fields
// PUT /usage/:id
func (h *UsageHandler) UpdateUsage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}

	usage, err := h.usageService.Update(middleware.GetUserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, usage.ToResponse())
}

// DeleteUsage removes a usage
// DELETE /usage/:id
func (h *UsageHandler) DeleteUsage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.usageService.Delete(middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Message(c, "삭제되었습니다.")
}

// ExportUsages downloads usages as CSV
// GET /usage/export?year=&month=
func (h *UsageHandler) ExportUsages(c *gin.Context) {
	year, month := monthQuery(c)

	export, err := h.usageService.Export(middleware.GetUserID(c), year, month)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Attachment(c, service.ExportContentType, url.PathEscape(export.Filename), export.Data)
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	usage := rg.Group("/usage")
	usage.Use(authMiddleware, middleware.WriteLoggerMiddleware())
	{
		usage.GET("", h.GetUsages)
		usage.POST("", h.CreateUsage)
		usage.GET("/export", h.ExportUsages)
		usage.GET("/:id", h.GetUsage)
		usage.PUT("/:id", h.UpdateUsage)
		usage.DELETE("/:id", h.DeleteUsage)
	}
}
