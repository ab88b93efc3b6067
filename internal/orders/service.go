// Package orders turns session carts into draft sales orders and keeps those
// drafts honest against current stock. A customer has at most one draft
// storefront order at a time; revisiting the cart updates it in place.
package orders

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/internal/cart"
	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

const (
	MethodPickup   = "pickup"
	MethodDelivery = "delivery"
)

type resourceClient interface {
	GetResource(ctx context.Context, doctype, name string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
	ListResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter, pageLength int) ([]erpnext.RawDocument, error)
	FirstResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
	CreateResource(ctx context.Context, doctype string, data map[string]any) (erpnext.RawDocument, error)
	UpdateResource(ctx context.Context, doctype, name string, data map[string]any) (erpnext.RawDocument, error)
	DeleteResource(ctx context.Context, doctype, name string) error
}

type cartSyncer interface {
	Replace(ctx context.Context, sessionID string, c *cart.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

var orderListFields = []string{
	"name", "title", "customer", "transaction_date", "grand_total",
	"status", "docstatus", "order_type", "shipping_rule",
}

type Service struct {
	erp      resourceClient
	carts    cartSyncer
	logger   *logger.Logger
	erpCfg   config.ERPNextConfig
	shipping config.ShippingConfig
}

func NewService(erp resourceClient, carts cartSyncer, logg *logger.Logger, erpCfg config.ERPNextConfig, shipping config.ShippingConfig) *Service {
	return &Service{erp: erp, carts: carts, logger: logg, erpCfg: erpCfg, shipping: shipping}
}

// PlaceFromCart materializes the session cart as the customer's draft
// storefront order. An existing draft is updated in place rather than
// duplicated, so placing twice never leaves two open orders behind.
func (s *Service) PlaceFromCart(ctx context.Context, c *cart.Cart, customerName string) (*erpdocs.SalesOrder, error) {
	if c == nil || c.IsEmpty() {
		return nil, errors.New(errors.CodeValidation, "cart is empty")
	}

	items := make([]map[string]any, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, map[string]any{
			"item_code": line.ItemCode,
			"qty":       line.Quantity,
			"warehouse": s.erpCfg.Warehouse,
		})
	}
	today := time.Now().Format("2006-01-02")
	payload := map[string]any{
		"customer":           customerName,
		"order_type":         erpdocs.OrderTypeShoppingCart,
		"company":            s.erpCfg.Company,
		"selling_price_list": s.erpCfg.PriceList,
		"transaction_date":   today,
		"delivery_date":      today,
		"items":              items,
	}

	var order *erpdocs.SalesOrder
	existing, err := s.findDraft(ctx, customerName)
	switch {
	case err == nil:
		doc, err := s.erp.UpdateResource(ctx, string(erpdocs.DoctypeSalesOrder), existing.Name, payload)
		if err != nil {
			return nil, err
		}
		if order, err = erpdocs.DecodeSalesOrder(doc); err != nil {
			return nil, err
		}
	case errors.HasCode(err, errors.CodeNotFound):
		payload["naming_series"] = s.erpCfg.OrderNamingSeries
		payload["title"] = fmt.Sprintf("Web order %s", customerName)
		payload["shipping_rule"] = s.shipping.DeliveryRule
		payload["taxes"] = []map[string]any{}
		doc, err := s.erp.CreateResource(ctx, string(erpdocs.DoctypeSalesOrder), payload)
		if err != nil {
			return nil, err
		}
		if order, err = erpdocs.DecodeSalesOrder(doc); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info(s.logger.WithOrder(ctx, order.Name), "draft order created")
		}
	default:
		return nil, err
	}

	// Charges depend on the persisted net total, so they are written after
	// the item rows have been priced by the ERP.
	return s.applyCharges(ctx, order)
}

func (s *Service) vatCharge() map[string]any {
	rate, err := strconv.ParseFloat(s.erpCfg.VATRate, 64)
	if err != nil {
		rate = 0
	}
	return map[string]any{
		"charge_type":  "On Net Total",
		"account_head": s.erpCfg.VATAccount,
		"description":  "VAT",
		"rate":         rate,
	}
}

func (s *Service) shippingCharge(rule string, total decimal.Decimal) map[string]any {
	return map[string]any{
		"charge_type":  "Actual",
		"account_head": s.erpCfg.ShippingAccount,
		"description":  "Shipping",
		"rate":         0,
		"tax_amount":   s.costForRule(rule, total).InexactFloat64(),
	}
}

func (s *Service) charges(rule string, total decimal.Decimal) []map[string]any {
	return []map[string]any{s.vatCharge(), s.shippingCharge(rule, total)}
}

// applyCharges rewrites the order's tax table from its current rule and net
// total and returns the repriced order.
func (s *Service) applyCharges(ctx context.Context, order *erpdocs.SalesOrder) (*erpdocs.SalesOrder, error) {
	doc, err := s.erp.UpdateResource(ctx, string(erpdocs.DoctypeSalesOrder), order.Name,
		map[string]any{"taxes": s.charges(order.ShippingRule, order.AmountTotal)})
	if err != nil {
		return nil, err
	}
	return erpdocs.DecodeSalesOrder(doc)
}

func (s *Service) findDraft(ctx context.Context, customerName string) (*erpdocs.SalesOrder, error) {
	doctype := string(erpdocs.DoctypeSalesOrder)
	doc, err := s.erp.FirstResource(ctx, doctype, orderListFields, []erpnext.Filter{
		erpnext.Eq(doctype, "customer", customerName),
		erpnext.Eq(doctype, "order_type", erpdocs.OrderTypeShoppingCart),
		erpnext.Eq(doctype, "status", erpdocs.StatusDraft),
		erpnext.Eq(doctype, "docstatus", erpdocs.DocstatusDraft),
	})
	if err != nil {
		return nil, err
	}
	return erpdocs.DecodeSalesOrder(doc)
}

// ListForCustomer returns the customer's storefront orders, newest first per
// the ERP's default ordering.
func (s *Service) ListForCustomer(ctx context.Context, customerName string) ([]erpdocs.SalesOrder, error) {
	doctype := string(erpdocs.DoctypeSalesOrder)
	docs, err := s.erp.ListResource(ctx, doctype, orderListFields, []erpnext.Filter{
		erpnext.Eq(doctype, "customer", customerName),
		erpnext.Eq(doctype, "order_type", erpdocs.OrderTypeShoppingCart),
		erpnext.Ne(doctype, "status", erpdocs.StatusCancelled),
		// Docstatus 2 is a cancelled amendment; those never show up in the
		// storefront history.
		erpnext.In(doctype, "docstatus", []int{erpdocs.DocstatusDraft, erpdocs.DocstatusSubmitted}),
	}, 0)
	if err != nil {
		return nil, err
	}
	orders := make([]erpdocs.SalesOrder, 0, len(docs))
	for _, doc := range docs {
		order, err := erpdocs.DecodeSalesOrder(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// Get fetches one of the customer's orders and, while it is still a draft,
// reconciles its quantities against projected stock. Three outcomes:
//
//   - nothing changed: the order is returned as-is;
//   - some lines were clamped: the corrected order is persisted, the session
//     cart is resynced, and the order is returned together with a
//     CodeQuantitiesChanged error describing the adjustments;
//   - every line dropped to zero: the draft is deleted, the cart cleared,
//     and CodeOrderGone is returned.
//
// Submitted orders are never touched.
func (s *Service) Get(ctx context.Context, sessionID, customerName, orderName string) (*erpdocs.SalesOrder, error) {
	order, err := s.fetchOwned(ctx, customerName, orderName)
	if err != nil {
		return nil, err
	}
	if order.Docstatus != erpdocs.DocstatusDraft {
		return order, nil
	}
	return s.reconcile(ctx, sessionID, order)
}

// Fetch returns one of the customer's orders without reconciling it. The
// checkout flow uses it to read the order exactly as it will be charged.
func (s *Service) Fetch(ctx context.Context, customerName, orderName string) (*erpdocs.SalesOrder, error) {
	return s.fetchOwned(ctx, customerName, orderName)
}

// fetchOwned fetches the full order document and enforces ownership. A
// foreign order reads as absent, ownership is never leaked.
func (s *Service) fetchOwned(ctx context.Context, customerName, orderName string) (*erpdocs.SalesOrder, error) {
	doc, err := s.erp.GetResource(ctx, string(erpdocs.DoctypeSalesOrder), orderName, nil, nil)
	if err != nil {
		return nil, err
	}
	order, err := erpdocs.DecodeSalesOrder(doc)
	if err != nil {
		return nil, err
	}
	if order.Customer != customerName {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("Sales Order %q not found", orderName))
	}
	return order, nil
}

type adjustment struct {
	ItemCode string `json:"item_code"`
	From     int    `json:"from"`
	To       int    `json:"to"`
}

func (s *Service) reconcile(ctx context.Context, sessionID string, order *erpdocs.SalesOrder) (*erpdocs.SalesOrder, error) {
	var adjustments []adjustment
	corrected := make([]erpdocs.SalesOrderItem, 0, len(order.Items))
	for _, line := range order.Items {
		granted := line.Quantity
		if !s.stockExempt(line.ItemGroup) {
			available := orderableFromProjection(line.ProjectedQty)
			if granted > available {
				granted = available
			}
		}
		if granted != line.Quantity {
			adjustments = append(adjustments, adjustment{ItemCode: line.ItemCode, From: line.Quantity, To: granted})
		}
		if granted > 0 {
			line.Quantity = granted
			corrected = append(corrected, line)
		}
	}

	if len(adjustments) == 0 {
		return order, nil
	}

	ctx = s.withOrder(ctx, order.Name)
	if len(corrected) == 0 {
		if err := s.erp.DeleteResource(ctx, string(erpdocs.DoctypeSalesOrder), order.Name); err != nil {
			return nil, err
		}
		if err := s.carts.Clear(ctx, sessionID); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Warn(ctx, "draft order dropped, nothing left in stock")
		}
		return nil, errors.New(errors.CodeOrderGone,
			fmt.Sprintf("order %q was dropped, none of its items are in stock", order.Name))
	}

	items := make([]map[string]any, 0, len(corrected))
	resynced := &cart.Cart{}
	for _, line := range corrected {
		items = append(items, map[string]any{
			"item_code": line.ItemCode,
			"qty":       line.Quantity,
			"warehouse": s.erpCfg.Warehouse,
		})
		resynced.Set(cart.Line{
			ItemCode: line.ItemCode,
			Title:    line.ItemName,
			Quantity: line.Quantity,
			Rate:     line.Rate,
		})
	}
	doc, err := s.erp.UpdateResource(ctx, string(erpdocs.DoctypeSalesOrder), order.Name, map[string]any{"items": items})
	if err != nil {
		return nil, err
	}
	updated, err := erpdocs.DecodeSalesOrder(doc)
	if err != nil {
		return nil, err
	}
	// The clamped lines change the net total, so the fee policy is reapplied.
	if updated, err = s.applyCharges(ctx, updated); err != nil {
		return nil, err
	}
	if err := s.carts.Replace(ctx, sessionID, resynced); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Warn(ctx, fmt.Sprintf("draft order quantities adjusted on %d lines", len(adjustments)))
	}
	return updated, errors.New(errors.CodeQuantitiesChanged, "order quantities were adjusted to current stock").
		WithDetails(map[string]any{"adjustments": adjustments})
}

// SetShippingMethod binds the named shipping rule to a draft order.
func (s *Service) SetShippingMethod(ctx context.Context, customerName, orderName, method string) (*erpdocs.SalesOrder, error) {
	rule, err := s.shippingRule(method)
	if err != nil {
		return nil, err
	}
	order, err := s.fetchOwned(ctx, customerName, orderName)
	if err != nil {
		return nil, err
	}
	if order.Docstatus != erpdocs.DocstatusDraft {
		return nil, errors.New(errors.CodeConflict,
			fmt.Sprintf("order %q is already submitted", orderName))
	}
	doc, err := s.erp.UpdateResource(ctx, string(erpdocs.DoctypeSalesOrder), order.Name,
		map[string]any{
			"shipping_rule": rule,
			"taxes":         s.charges(rule, order.AmountTotal),
		})
	if err != nil {
		return nil, err
	}
	return erpdocs.DecodeSalesOrder(doc)
}

func (s *Service) shippingRule(method string) (string, error) {
	switch method {
	case MethodPickup:
		return s.shipping.PickupRule, nil
	case MethodDelivery:
		return s.shipping.DeliveryRule, nil
	default:
		return "", errors.New(errors.CodeValidation,
			fmt.Sprintf("unknown shipping method %q", method))
	}
}

// ShippingCost quotes the storefront shipping charge: pickup is always free,
// delivery is free above the configured threshold.
func (s *Service) ShippingCost(method string, total decimal.Decimal) (decimal.Decimal, error) {
	rule, err := s.shippingRule(method)
	if err != nil {
		return decimal.Zero, err
	}
	return s.costForRule(rule, total), nil
}

// costForRule is the fee policy keyed by the bound shipping rule: the pickup
// rule is always free, anything else is waived at the threshold.
func (s *Service) costForRule(rule string, total decimal.Decimal) decimal.Decimal {
	if rule == s.shipping.PickupRule {
		return decimal.Zero
	}
	if total.GreaterThanOrEqual(s.shipping.ThresholdAmount()) {
		return decimal.Zero
	}
	return s.shipping.FeeAmount()
}

// Submit flips the draft to a submitted document. After this the order is
// immutable from the storefront's point of view.
func (s *Service) Submit(ctx context.Context, orderName string) (*erpdocs.SalesOrder, error) {
	doc, err := s.erp.UpdateResource(ctx, string(erpdocs.DoctypeSalesOrder), orderName,
		map[string]any{"docstatus": erpdocs.DocstatusSubmitted})
	if err != nil {
		return nil, err
	}
	return erpdocs.DecodeSalesOrder(doc)
}

func (s *Service) stockExempt(itemGroup string) bool {
	return s.erpCfg.StockExemptGroup != "" && itemGroup == s.erpCfg.StockExemptGroup
}

func (s *Service) withOrder(ctx context.Context, orderName string) context.Context {
	if s.logger == nil {
		return ctx
	}
	return s.logger.WithOrder(ctx, orderName)
}

func orderableFromProjection(projected float64) int {
	if projected <= 0 {
		return 0
	}
	return int(math.Floor(projected))
}
