package pricing

import (
	"errors"
	"net/http"

	"github.com/naracommerce/backend-crm/internal/common"
	"github.com/naracommerce/backend-crm/internal/entity"
)

// Each precondition violation gets its own sentinel so the boundary can
// render a precise message, while the attached AppError code stays the
// stable contract for status mapping.
var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidBasePrice    = errors.New("base price must be zero or greater")
	ErrInvalidCost         = errors.New("cost must be greater than zero")
	ErrInvalidSellingPrice = errors.New("selling price must be greater than zero")
	ErrPriceBelowCost      = errors.New("selling price must not be below cost")
	ErrMarginOutOfRange    = errors.New("target margin must be at least 0 and below 100")
	ErrMarkupOutOfRange    = errors.New("target markup must be zero or greater")
	ErrTargetConflict      = errors.New("exactly one of target margin or target markup must be provided")
	ErrRateLimited         = errors.New("rate limit exceeded")
)

// wrapDomainError attaches the tagged code and HTTP status for a sentinel.
func wrapDomainError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, entity.ErrProductNotFound), errors.Is(err, entity.ErrCustomerNotFound):
		return common.NewAppError(common.CodeNotFound, err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidQuantity):
		return common.NewAppError(common.CodeInvalidQuantity, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrInvalidBasePrice), errors.Is(err, ErrInvalidCost), errors.Is(err, ErrInvalidSellingPrice):
		return common.NewAppError(common.CodeInvalidPrice, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrPriceBelowCost):
		return common.NewAppError(common.CodeInvalidCostPrice, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrMarginOutOfRange), errors.Is(err, ErrMarkupOutOfRange):
		return common.NewAppError(common.CodeInvalidPercentage, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrTargetConflict):
		return common.NewAppError(common.CodeTargetConflict, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrRateLimited):
		return common.NewAppError(common.CodeRateLimited, err.Error(), http.StatusTooManyRequests, err)
	default:
		return common.NewAppError(common.CodeInternal, "price calculation failed", http.StatusInternalServerError, err)
	}
}
