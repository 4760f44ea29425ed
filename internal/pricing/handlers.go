package pricing

import (
	"context"
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/naracommerce/backend-crm/internal/audit"
	"github.com/naracommerce/backend-crm/internal/common"
)

// Handler exposes the pricing operations over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
	auditRec *audit.Recorder
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Validate *validator.Validate
	Audit    *audit.Recorder
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	return &Handler{service: cfg.Service, validate: v, auditRec: cfg.Audit}
}

type calculateRequest struct {
	ProductID       string           `json:"productId" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	BasePrice       *decimal.Decimal `json:"basePrice,omitempty"`
	CustomerID      string           `json:"customerId,omitempty"`
	ApplyPromotions *bool            `json:"applyPromotions,omitempty"`
	IncludeTaxes    *bool            `json:"includeTaxes,omitempty"`
}

type marginMarkupRequest struct {
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type suggestRequest struct {
	ProductID    string           `json:"productId" validate:"required"`
	TargetMargin *decimal.Decimal `json:"targetMargin,omitempty"`
	TargetMarkup *decimal.Decimal `json:"targetMarkup,omitempty"`
	CustomerID   string           `json:"customerId,omitempty"`
	Quantity     decimal.Decimal  `json:"quantity,omitempty"`
}

// CalculatePrice handles POST /api/v1/pricing/calculate.
func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing service not configured", nil)
		return
	}
	var body calculateRequest
	if !h.decodeAndValidate(w, r, &body, "calculate_price") {
		return
	}
	result, err := h.service.CalculatePrice(r.Context(), PriceCalculationRequest{
		ProductID:       body.ProductID,
		Quantity:        body.Quantity,
		BasePrice:       body.BasePrice,
		CustomerID:      body.CustomerID,
		ApplyPromotions: body.ApplyPromotions,
		IncludeTaxes:    body.IncludeTaxes,
	})
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// MarginMarkup handles POST /api/v1/pricing/margin-markup.
func (h *Handler) MarginMarkup(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing service not configured", nil)
		return
	}
	var body marginMarkupRequest
	if !h.decodeAndValidate(w, r, &body, "calculate_margin_markup") {
		return
	}
	result, err := h.service.CalculateMarginMarkup(r.Context(), body.Cost, body.SellingPrice)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// SuggestPrice handles POST /api/v1/pricing/suggest.
func (h *Handler) SuggestPrice(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing service not configured", nil)
		return
	}
	var body suggestRequest
	if !h.decodeAndValidate(w, r, &body, "suggest_price") {
		return
	}
	result, err := h.service.SuggestPrice(r.Context(), SuggestPriceRequest{
		ProductID:    body.ProductID,
		TargetMargin: body.TargetMargin,
		TargetMarkup: body.TargetMarkup,
		CustomerID:   body.CustomerID,
		Quantity:     body.Quantity,
	})
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// CacheStats handles GET /api/v1/pricing/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing service not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.CacheStats()})
}

// ClearCache handles DELETE /api/v1/pricing/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing service not configured", nil)
		return
	}
	h.service.ClearCaches()
	h.auditRec.Record(r.Context(), audit.Entry{Operation: "clear_caches", Status: audit.StatusSuccess})
	common.JSON(w, http.StatusOK, map[string]any{"data": "caches cleared"})
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, operation string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.rejectValidation(w, r.Context(), operation, "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.rejectValidation(w, r.Context(), operation, err.Error())
		return false
	}
	return true
}

func (h *Handler) rejectValidation(w http.ResponseWriter, ctx context.Context, operation, detail string) {
	h.auditRec.Record(ctx, audit.Entry{
		Operation:   operation,
		Status:      audit.StatusValidationError,
		ErrorDetail: detail,
	})
	common.JSONError(w, http.StatusBadRequest, common.CodeValidation, detail, nil)
}
