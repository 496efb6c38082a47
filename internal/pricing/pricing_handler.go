package pricing

import (
	"net/http"
	"strconv"

	"storefront-api/internal/pkg/apperror"
	"storefront-api/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	history HistoryClient
	logger  *zap.Logger
}

func NewHandler(history HistoryClient, logger *zap.Logger) *Handler {
	l := zap.L().Named("pricing.handler")
	if logger != nil {
		l = logger.Named("pricing.handler")
	}
	return &Handler{history: history, logger: l}
}

// PricePointResponse augments a raw point with its computed change percent.
type PricePointResponse struct {
	PricePoint
	ChangePercent string `json:"change_percent"`
}

func toPointResponses(points []PricePoint) []PricePointResponse {
	out := make([]PricePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, PricePointResponse{
			PricePoint:    p,
			ChangePercent: ChangePercent(p).String(),
		})
	}
	return out
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
}

// ProductHistory lists price changes for one product.
// GET /price-history/products/:productId
func (h *Handler) ProductHistory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || productID <= 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid product id", nil)
		return
	}

	points, err := h.history.Product(c.Request.Context(), productID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", toPointResponses(points))
}

// VariantHistory lists price changes for one variant.
// GET /price-history/variants/:variantId
func (h *Handler) VariantHistory(c *gin.Context) {
	variantID, err := strconv.ParseInt(c.Param("variantId"), 10, 64)
	if err != nil || variantID <= 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Invalid variant id", nil)
		return
	}

	points, err := h.history.Variant(c.Request.Context(), variantID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "", toPointResponses(points))
}

// List pages through all price changes; admin screens use it.
// GET /price-history?page=&limit=
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := h.history.List(c.Request.Context(), ListParams{Page: page, PageSize: limit})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	totalPages := int((result.TotalItems + int64(limit) - 1) / int64(limit))
	response.SuccessWithPagination(c, http.StatusOK, "", toPointResponses(result.Points), response.Pagination{
		Page:            page,
		PageSize:        limit,
		TotalItems:      result.TotalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	})
}
