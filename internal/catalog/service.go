// Package catalog exposes the sellable item catalog: item listings, variant
// expansion, price-list pricing and warehouse availability.
package catalog

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/cache"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// resourceClient is the slice of the ERP gateway the catalog needs.
type resourceClient interface {
	GetResource(ctx context.Context, doctype, name string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
	ListResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter, pageLength int) ([]erpnext.RawDocument, error)
	FirstResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
}

var itemFields = []string{
	"name", "item_code", "item_name", "description", "web_long_description",
	"standard_rate", "thumbnail", "has_variants", "variant_of",
	"website_warehouse", "item_group",
}

type Service struct {
	erp       resourceClient
	stock     *cache.Cache
	logger    *logger.Logger
	warehouse string
	priceList string
}

func NewService(erp resourceClient, stock *cache.Cache, logg *logger.Logger, cfg config.ERPNextConfig) *Service {
	return &Service{
		erp:       erp,
		stock:     stock,
		logger:    logg,
		warehouse: cfg.Warehouse,
		priceList: cfg.PriceList,
	}
}

// ListItems returns the top-level storefront catalog, optionally narrowed to
// one item group. Variants are not expanded here, GetItem does that per item.
func (s *Service) ListItems(ctx context.Context, itemGroup string) ([]erpdocs.Item, error) {
	filters := []erpnext.Filter{
		erpnext.Eq(string(erpdocs.DoctypeItem), "show_in_website", 1),
		erpnext.Eq(string(erpdocs.DoctypeItem), "is_sales_item", 1),
		erpnext.Eq(string(erpdocs.DoctypeItem), "disabled", 0),
	}
	if itemGroup != "" {
		filters = append(filters, erpnext.Eq(string(erpdocs.DoctypeItem), "item_group", itemGroup))
	}
	docs, err := s.erp.ListResource(ctx, string(erpdocs.DoctypeItem), itemFields, filters, 0)
	if err != nil {
		return nil, err
	}
	items := make([]erpdocs.Item, 0, len(docs))
	for _, doc := range docs {
		item, err := erpdocs.DecodeItem(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// GetItem fetches one item by code with its selling price and availability.
// Template items get their variants expanded, each with its own price and
// availability; the template itself is not orderable.
func (s *Service) GetItem(ctx context.Context, code string) (*erpdocs.Item, error) {
	doc, err := s.erp.GetResource(ctx, string(erpdocs.DoctypeItem), code, itemFields, nil)
	if err != nil {
		return nil, err
	}
	item, err := erpdocs.DecodeItem(doc)
	if err != nil {
		return nil, err
	}

	if item.HasVariants {
		variants, err := s.listVariants(ctx, item.Code)
		if err != nil {
			return nil, err
		}
		item.Variants = variants
		return item, nil
	}

	if err := s.enrich(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) listVariants(ctx context.Context, templateCode string) ([]erpdocs.Item, error) {
	docs, err := s.erp.ListResource(ctx, string(erpdocs.DoctypeItem), itemFields, []erpnext.Filter{
		erpnext.Eq(string(erpdocs.DoctypeItem), "variant_of", templateCode),
		erpnext.Eq(string(erpdocs.DoctypeItem), "is_sales_item", 1),
		erpnext.Eq(string(erpdocs.DoctypeItem), "show_variant_in_website", 1),
	}, 0)
	if err != nil {
		return nil, err
	}
	variants := make([]erpdocs.Item, 0, len(docs))
	for _, doc := range docs {
		variant, err := erpdocs.DecodeItem(doc)
		if err != nil {
			return nil, err
		}
		if err := s.enrich(ctx, variant); err != nil {
			return nil, err
		}
		variants = append(variants, *variant)
	}
	return variants, nil
}

// enrich fills the selling price and orderable quantity of a leaf item.
func (s *Service) enrich(ctx context.Context, item *erpdocs.Item) error {
	price, err := s.SellingPrice(ctx, item.Code)
	switch {
	case err == nil:
		item.Price = price
	case errors.HasCode(err, errors.CodeNotFound):
		// Variants carry no standard rate of their own, an unpriced variant
		// cannot be sold.
		if item.VariantOf != "" {
			return errors.New(errors.CodeValidation,
				fmt.Sprintf("item %q has no selling price", item.Code))
		}
		// No price-list entry, the standard rate stands.
	default:
		return err
	}

	qty, err := s.OrderableQty(ctx, item.Code)
	if err != nil {
		return err
	}
	item.OrderableQty = qty
	return nil
}

// SellingPrice resolves the price-list rate for an item code. CodeNotFound
// means the item has no entry on the configured price list.
func (s *Service) SellingPrice(ctx context.Context, code string) (decimal.Decimal, error) {
	doc, err := s.erp.FirstResource(ctx, string(erpdocs.DoctypeItemPrice),
		[]string{"name", "item_code", "price_list_rate"},
		[]erpnext.Filter{
			erpnext.Eq(string(erpdocs.DoctypeItemPrice), "item_code", code),
			erpnext.Eq(string(erpdocs.DoctypeItemPrice), "selling", 1),
			erpnext.Eq(string(erpdocs.DoctypeItemPrice), "price_list", s.priceList),
		})
	if err != nil {
		return decimal.Zero, err
	}
	price, err := erpdocs.DecodeItemPrice(doc)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Rate, nil
}

// OrderableQty returns how many units of an item can currently be ordered
// from the storefront warehouse. An absent stock record means zero, negative
// projections clamp to zero. Results are memoized briefly so a burst of cart
// operations does not hammer the ERP.
func (s *Service) OrderableQty(ctx context.Context, code string) (int, error) {
	key := cache.Key("stock", code, s.warehouse)
	var qty int
	err := s.stock.Do(ctx, key, &qty, func(ctx context.Context) (any, error) {
		return s.lookupQty(ctx, code)
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *Service) lookupQty(ctx context.Context, code string) (int, error) {
	doc, err := s.erp.FirstResource(ctx, string(erpdocs.DoctypeBin),
		[]string{"name", "item_code", "warehouse", "projected_qty"},
		[]erpnext.Filter{
			erpnext.Eq(string(erpdocs.DoctypeBin), "item_code", code),
			erpnext.Eq(string(erpdocs.DoctypeBin), "warehouse", s.warehouse),
		})
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return 0, nil
		}
		return 0, err
	}
	bin, err := erpdocs.DecodeBin(doc)
	if err != nil {
		return 0, err
	}
	if bin.ProjectedQty <= 0 {
		return 0, nil
	}
	return int(math.Floor(bin.ProjectedQty)), nil
}

// Warehouse is the storefront warehouse every availability lookup targets.
func (s *Service) Warehouse() string { return s.warehouse }
