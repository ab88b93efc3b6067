package cart

import (
	"context"
	"fmt"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/session"
)

// catalogService resolves items and their current availability.
type catalogService interface {
	GetItem(ctx context.Context, code string) (*erpdocs.Item, error)
}

// Service applies stock-aware cart mutations and persists the result in the
// session store. Every mutation validates the item against the catalog first.
type Service struct {
	catalog     catalogService
	sessions    *session.Store
	logger      *logger.Logger
	exemptGroup string
}

func NewService(catalog catalogService, sessions *session.Store, logg *logger.Logger, cfg config.ERPNextConfig) *Service {
	return &Service{
		catalog:     catalog,
		sessions:    sessions,
		logger:      logg,
		exemptGroup: cfg.StockExemptGroup,
	}
}

// Get loads the session cart, lazily creating an empty one.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	var c Cart
	if _, err := s.sessions.Load(ctx, sessionID, session.FieldCart, &c); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading session cart")
	}
	return &c, nil
}

// SetItem sets the absolute quantity for an item, replacing any existing
// line. Quantity zero removes the line. When the requested quantity exceeds
// availability the line is clamped to what is orderable, the clamped cart is
// persisted, and the call reports the shortfall so the caller can surface it;
// the persisted state stays usable either way.
func (s *Service) SetItem(ctx context.Context, sessionID, itemCode string, quantity int) (*Cart, error) {
	return s.apply(ctx, sessionID, itemCode, quantity, true)
}

// AddItem increments the item's quantity on top of what the cart already
// holds, with the same clamp behavior as SetItem.
func (s *Service) AddItem(ctx context.Context, sessionID, itemCode string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, errors.New(errors.CodeValidation, "quantity must be at least 1")
	}
	return s.apply(ctx, sessionID, itemCode, quantity, false)
}

func (s *Service) apply(ctx context.Context, sessionID, itemCode string, quantity int, replace bool) (*Cart, error) {
	if quantity < 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must not be negative")
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !replace {
		quantity += c.Quantity(itemCode)
	}

	if quantity == 0 {
		c.Remove(itemCode)
		if err := s.save(ctx, sessionID, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	item, err := s.catalog.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if item.HasVariants {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("item %q is a template, order one of its variants", itemCode))
	}

	granted := quantity
	if !s.stockExempt(item) && quantity > item.OrderableQty {
		granted = item.OrderableQty
	}

	c.Set(Line{
		ItemCode: item.Code,
		Title:    item.Title,
		Quantity: granted,
		Rate:     item.Price,
	})
	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, err
	}

	if granted < quantity {
		if s.logger != nil {
			s.logger.Warn(ctx, fmt.Sprintf("cart quantity clamped for %s: requested %d, granted %d",
				itemCode, quantity, granted))
		}
		return c, errors.New(errors.CodeInsufficientStock,
			fmt.Sprintf("only %d of %q available", item.OrderableQty, itemCode)).
			WithDetails(map[string]any{
				"item_code": itemCode,
				"requested": quantity,
				"available": item.OrderableQty,
			})
	}
	return c, nil
}

// Replace overwrites the whole session cart. Order reconciliation uses it to
// resync the cart with corrected quantities.
func (s *Service) Replace(ctx context.Context, sessionID string, c *Cart) error {
	return s.save(ctx, sessionID, c)
}

// Clear empties the session cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID, session.FieldCart); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "clearing session cart")
	}
	return nil
}

func (s *Service) save(ctx context.Context, sessionID string, c *Cart) error {
	if err := s.sessions.Save(ctx, sessionID, session.FieldCart, c); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "saving session cart")
	}
	return nil
}

func (s *Service) stockExempt(item *erpdocs.Item) bool {
	return s.exemptGroup != "" && item.ItemGroup == s.exemptGroup
}
