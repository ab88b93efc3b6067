package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/cache"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	redisclient "github.com/avidal-labs/brewshop-backend/pkg/redis"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore { return &memStore{values: map[string]string{}} }

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redisclient.ErrNotFound
	}
	return v, nil
}

// stubERP serves canned documents keyed by doctype, with call counting for
// memoization assertions.
type stubERP struct {
	items       map[string]erpnext.RawDocument
	variants    map[string][]erpnext.RawDocument
	bins        map[string]erpnext.RawDocument
	prices      map[string]erpnext.RawDocument
	binLookups  int
	listFilters []erpnext.Filter
}

func hasFilter(filters []erpnext.Filter, field string) bool {
	for _, f := range filters {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (s *stubERP) GetResource(_ context.Context, doctype, name string, _ []string, _ []erpnext.Filter) (erpnext.RawDocument, error) {
	if doctype != string(erpdocs.DoctypeItem) {
		return nil, errors.New(errors.CodeNotFound, "unexpected doctype")
	}
	doc, ok := s.items[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "item not found")
	}
	return doc, nil
}

func (s *stubERP) ListResource(_ context.Context, doctype string, _ []string, filters []erpnext.Filter, _ int) ([]erpnext.RawDocument, error) {
	s.listFilters = filters
	if doctype != string(erpdocs.DoctypeItem) {
		return []erpnext.RawDocument{}, nil
	}
	var group string
	for _, f := range filters {
		switch f.Field {
		case "variant_of":
			return s.variants[f.Value.(string)], nil
		case "item_group":
			group = f.Value.(string)
		}
	}
	docs := make([]erpnext.RawDocument, 0, len(s.items))
	for _, doc := range s.items {
		if group != "" && doc["item_group"] != group {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *stubERP) FirstResource(_ context.Context, doctype string, _ []string, filters []erpnext.Filter) (erpnext.RawDocument, error) {
	var code string
	for _, f := range filters {
		if f.Field == "item_code" {
			code = f.Value.(string)
		}
	}
	var doc erpnext.RawDocument
	var ok bool
	switch doctype {
	case string(erpdocs.DoctypeBin):
		s.binLookups++
		doc, ok = s.bins[code]
	case string(erpdocs.DoctypeItemPrice):
		doc, ok = s.prices[code]
	}
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "no match")
	}
	return doc, nil
}

func newTestService(t *testing.T, erp *stubERP) *Service {
	t.Helper()
	memo, err := cache.New(newMemStore(), time.Minute)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return NewService(erp, memo, nil, config.ERPNextConfig{
		Warehouse: "Stores - BS",
		PriceList: "Standard Selling",
	})
}

func itemDoc(code string, rate float64) erpnext.RawDocument {
	return erpnext.RawDocument{
		"name":          code,
		"item_code":     code,
		"item_name":     "Item " + code,
		"standard_rate": rate,
	}
}

func TestListItemsFiltersByItemGroup(t *testing.T) {
	hops := itemDoc("hops-cascade", 9)
	hops["item_group"] = "Hops"
	malt := itemDoc("malt", 4)
	malt["item_group"] = "Malts"
	erp := &stubERP{items: map[string]erpnext.RawDocument{"hops-cascade": hops, "malt": malt}}
	svc := newTestService(t, erp)

	all, err := svc.ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("items = %d, want 2", len(all))
	}
	if !hasFilter(erp.listFilters, "is_sales_item") || !hasFilter(erp.listFilters, "disabled") {
		t.Fatalf("sellable/enabled gates missing: %v", erp.listFilters)
	}

	grouped, err := svc.ListItems(context.Background(), "Hops")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grouped) != 1 || grouped[0].Code != "hops-cascade" {
		t.Fatalf("grouped = %+v", grouped)
	}
}

func TestGetItemLeafWithPriceAndStock(t *testing.T) {
	erp := &stubERP{
		items: map[string]erpnext.RawDocument{
			"hops-cascade": itemDoc("hops-cascade", 9),
		},
		bins: map[string]erpnext.RawDocument{
			"hops-cascade": {"name": "BIN-1", "item_code": "hops-cascade", "warehouse": "Stores - BS", "projected_qty": 7.6},
		},
		prices: map[string]erpnext.RawDocument{
			"hops-cascade": {"name": "PR-1", "item_code": "hops-cascade", "price_list_rate": 6.5},
		},
	}
	item, err := newTestService(t, erp).GetItem(context.Background(), "hops-cascade")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Price.String() != "6.5" {
		t.Fatalf("price = %s, want price-list rate 6.5", item.Price)
	}
	if item.OrderableQty != 7 {
		t.Fatalf("orderable = %d, want floor of projection", item.OrderableQty)
	}
}

func TestGetItemFallsBackToStandardRate(t *testing.T) {
	erp := &stubERP{
		items: map[string]erpnext.RawDocument{"malt": itemDoc("malt", 4)},
	}
	item, err := newTestService(t, erp).GetItem(context.Background(), "malt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Price.String() != "4" {
		t.Fatalf("price = %s, want standard rate 4", item.Price)
	}
	if item.OrderableQty != 0 {
		t.Fatalf("orderable = %d, want 0 for absent stock record", item.OrderableQty)
	}
}

func TestGetItemExpandsVariants(t *testing.T) {
	erp := &stubERP{
		items: map[string]erpnext.RawDocument{
			"tshirt": {
				"name": "tshirt", "item_code": "tshirt",
				"item_name": "Shirt", "has_variants": float64(1),
			},
		},
		variants: map[string][]erpnext.RawDocument{
			"tshirt": {
				{"name": "tshirt-m", "item_code": "tshirt-m", "item_name": "Shirt M", "variant_of": "tshirt", "standard_rate": float64(15)},
				{"name": "tshirt-l", "item_code": "tshirt-l", "item_name": "Shirt L", "variant_of": "tshirt", "standard_rate": float64(15)},
			},
		},
		bins: map[string]erpnext.RawDocument{
			"tshirt-m": {"name": "BIN-2", "item_code": "tshirt-m", "warehouse": "Stores - BS", "projected_qty": float64(3)},
		},
		prices: map[string]erpnext.RawDocument{
			"tshirt-m": {"name": "PR-M", "item_code": "tshirt-m", "price_list_rate": float64(15)},
			"tshirt-l": {"name": "PR-L", "item_code": "tshirt-l", "price_list_rate": float64(15)},
		},
	}
	item, err := newTestService(t, erp).GetItem(context.Background(), "tshirt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hasFilter(erp.listFilters, "show_variant_in_website") {
		t.Fatalf("variant visibility filter missing: %v", erp.listFilters)
	}
	if len(item.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(item.Variants))
	}
	if item.OrderableQty != 0 {
		t.Fatalf("template item must not be orderable")
	}
	if item.Variants[0].OrderableQty != 3 || item.Variants[1].OrderableQty != 0 {
		t.Fatalf("variant availability = %d, %d",
			item.Variants[0].OrderableQty, item.Variants[1].OrderableQty)
	}
}

func TestGetItemRejectsUnpricedVariant(t *testing.T) {
	erp := &stubERP{
		items: map[string]erpnext.RawDocument{
			"tshirt": {
				"name": "tshirt", "item_code": "tshirt",
				"item_name": "Shirt", "has_variants": float64(1),
			},
		},
		variants: map[string][]erpnext.RawDocument{
			"tshirt": {
				{"name": "tshirt-m", "item_code": "tshirt-m", "item_name": "Shirt M", "variant_of": "tshirt"},
			},
		},
	}
	_, err := newTestService(t, erp).GetItem(context.Background(), "tshirt")
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("err = %v, want validation for unpriced variant", err)
	}
}

func TestOrderableQtyClampsNegativeProjection(t *testing.T) {
	erp := &stubERP{
		bins: map[string]erpnext.RawDocument{
			"hops": {"name": "BIN-3", "item_code": "hops", "warehouse": "Stores - BS", "projected_qty": float64(-5)},
		},
	}
	qty, err := newTestService(t, erp).OrderableQty(context.Background(), "hops")
	if err != nil {
		t.Fatalf("qty: %v", err)
	}
	if qty != 0 {
		t.Fatalf("qty = %d, want 0", qty)
	}
}

func TestOrderableQtyMemoizesLookups(t *testing.T) {
	erp := &stubERP{
		bins: map[string]erpnext.RawDocument{
			"hops": {"name": "BIN-4", "item_code": "hops", "warehouse": "Stores - BS", "projected_qty": float64(12)},
		},
	}
	svc := newTestService(t, erp)
	for i := 0; i < 3; i++ {
		qty, err := svc.OrderableQty(context.Background(), "hops")
		if err != nil {
			t.Fatalf("qty: %v", err)
		}
		if qty != 12 {
			t.Fatalf("qty = %d, want 12", qty)
		}
	}
	if erp.binLookups != 1 {
		t.Fatalf("bin lookups = %d, want 1", erp.binLookups)
	}
}
