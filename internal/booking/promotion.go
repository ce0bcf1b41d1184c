package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// PromotionChecker validates a code against the backend.
type PromotionChecker interface {
	ValidatePromotion(ctx context.Context, code string) (model.PromotionValidation, error)
}

// PromotionValidator holds at most one applied promotion.
type PromotionValidator struct {
	checker PromotionChecker

	mu      sync.Mutex
	current *Promotion
}

// NewPromotionValidator returns a validator with nothing applied.
func NewPromotionValidator(c PromotionChecker) *PromotionValidator {
	return &PromotionValidator{checker: c}
}

// Validate checks code with the backend.  On success the promotion replaces
// any previous one.  A rejected code fails with ErrInvalidCode and clears
// the applied promotion; a transport failure wraps api.ErrNetwork and
// leaves it untouched.
func (v *PromotionValidator) Validate(ctx context.Context, code string) (Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Promotion{}, ErrInvalidCode
	}
	res, err := v.checker.ValidatePromotion(ctx, code)
	if err != nil {
		if _, ok := api.IsValidation(err); ok || errors.Is(err, api.ErrNotFound) {
			v.Remove()
			return Promotion{}, ErrInvalidCode
		}
		return Promotion{}, fmt.Errorf("validate promotion: %w", err)
	}
	if !res.Valid {
		v.Remove()
		return Promotion{}, ErrInvalidCode
	}
	p := Promotion{Code: res.Code, Discount: res.Discount}
	if p.Code == "" {
		p.Code = code
	}
	v.mu.Lock()
	v.current = &p
	v.mu.Unlock()
	return p, nil
}

// Remove clears the applied promotion.
func (v *PromotionValidator) Remove() {
	v.mu.Lock()
	v.current = nil
	v.mu.Unlock()
}

// Current returns the applied promotion, or nil.
func (v *PromotionValidator) Current() *Promotion {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return nil
	}
	p := *v.current
	return &p
}
