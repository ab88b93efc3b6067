// Package checkout orchestrates the two-phase payment flow: phase one
// registers a hosted checkout with the payment gateway for the order total,
// phase two validates the gateway's verdict and records the payment in the
// ERP. Nothing is charged or written to the ERP before phase two sees PAID.
package checkout

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/sumup"
)

// Gateway is the payment-gateway strategy the orchestrator drives.
// *sumup.Client satisfies it.
type Gateway interface {
	CreateCheckout(ctx context.Context, params sumup.CheckoutParams) (*sumup.Checkout, error)
	GetCheckout(ctx context.Context, checkoutID string) (*sumup.Checkout, error)
	GetCheckoutByReference(ctx context.Context, reference string) (*sumup.Checkout, error)
	DeleteCheckout(ctx context.Context, checkoutID string) error
}

// orderService is the slice of order handling checkout needs.
type orderService interface {
	Fetch(ctx context.Context, customerName, orderName string) (*erpdocs.SalesOrder, error)
	Submit(ctx context.Context, orderName string) (*erpdocs.SalesOrder, error)
}

type resourceClient interface {
	FirstResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
	CreateResource(ctx context.Context, doctype string, data map[string]any) (erpnext.RawDocument, error)
}

type cartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type Service struct {
	gateway  Gateway
	orders   orderService
	erp      resourceClient
	carts    cartClearer
	logger   *logger.Logger
	erpCfg   config.ERPNextConfig
	payCfg   config.SumUpConfig
	pipeline *Pipeline
}

func NewService(gateway Gateway, orders orderService, erp resourceClient, carts cartClearer,
	logg *logger.Logger, erpCfg config.ERPNextConfig, payCfg config.SumUpConfig) *Service {
	return &Service{
		gateway:  gateway,
		orders:   orders,
		erp:      erp,
		carts:    carts,
		logger:   logg,
		erpCfg:   erpCfg,
		payCfg:   payCfg,
		pipeline: NewPipeline(paymentStep{}),
	}
}

// StepStatus is the progress of one pipeline step for an order.
type StepStatus struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Status reports the customer's order against every checkout step, in
// pipeline order.
func (s *Service) Status(ctx context.Context, customerName, orderName string) ([]StepStatus, error) {
	if customerName == "" {
		return nil, errors.New(errors.CodeSessionIntegrity, "checkout requires a signed-in customer")
	}
	order, err := s.orders.Fetch(ctx, customerName, orderName)
	if err != nil {
		return nil, err
	}
	statuses := make([]StepStatus, 0, len(s.pipeline.Steps()))
	for _, step := range s.pipeline.Steps() {
		statuses = append(statuses, StepStatus{Name: step.Name(), Done: step.Done(order)})
	}
	return statuses, nil
}

// Result is the outcome of a validated payment.
type Result struct {
	Order           *erpdocs.SalesOrder `json:"order"`
	TransactionCode string              `json:"transaction_code"`
}

// CreateCheckout opens a gateway checkout for the customer's draft order.
// The order name doubles as the idempotency reference: repeating the call
// for an unchanged order returns the same checkout instead of opening a new
// one, and a changed total replaces the stale checkout.
func (s *Service) CreateCheckout(ctx context.Context, customerName, orderName string) (*sumup.Checkout, error) {
	if customerName == "" {
		return nil, errors.New(errors.CodeSessionIntegrity, "checkout requires a signed-in customer")
	}
	order, err := s.orders.Fetch(ctx, customerName, orderName)
	if err != nil {
		return nil, err
	}
	if order.Docstatus != erpdocs.DocstatusDraft {
		return nil, errors.New(errors.CodeConflict,
			fmt.Sprintf("order %q is already submitted", orderName))
	}
	if !order.AmountTotal.IsPositive() {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("order %q has nothing to pay", orderName))
	}

	params := sumup.CheckoutParams{
		Amount:      order.AmountTotal,
		Reference:   order.Name,
		Description: fmt.Sprintf("Order %s", order.Name),
	}
	checkout, err := s.gateway.CreateCheckout(ctx, params)
	if err == nil {
		return checkout, nil
	}
	if !errors.HasCode(err, errors.CodeConflict) {
		return nil, err
	}
	return s.resolveConflict(ctx, order, params)
}

// resolveConflict handles a reference collision: a checkout for this order
// already exists at the gateway.
func (s *Service) resolveConflict(ctx context.Context, order *erpdocs.SalesOrder, params sumup.CheckoutParams) (*sumup.Checkout, error) {
	existing, err := s.gateway.GetCheckoutByReference(ctx, order.Name)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			// The gateway refused the reference but no pending checkout
			// matches it, only a settled one can explain that.
			return nil, errors.New(errors.CodeConflict,
				fmt.Sprintf("order %q appears to be already paid", order.Name))
		}
		return nil, err
	}
	switch existing.Status {
	case sumup.StatusPaid:
		return nil, errors.New(errors.CodeConflict,
			fmt.Sprintf("order %q is already paid", order.Name))
	case sumup.StatusPending:
		if existing.Amount.Equal(order.AmountTotal) {
			return existing, nil
		}
	}
	// The pending checkout no longer matches the order total. Replace it;
	// the fresh reference stays traceable to the order.
	if err := s.gateway.DeleteCheckout(ctx, existing.ID); err != nil {
		return nil, err
	}
	params.Reference = fmt.Sprintf("%s-%d", order.Name, time.Now().Unix())
	return s.gateway.CreateCheckout(ctx, params)
}

// referenceSuffix strips the replacement timestamp a regenerated checkout
// reference carries.
var referenceSuffix = regexp.MustCompile(`-\d{10,}$`)

func orderNameFromReference(reference string) string {
	return referenceSuffix.ReplaceAllString(reference, "")
}

// ValidateCheckout is phase two. It reads the gateway's verdict for the
// checkout and, on PAID, submits the order, records a submitted Payment Entry
// against it, and clears the session cart. Any other status leaves the ERP
// untouched and reports CodePaymentDeclined. A payment that cannot be
// recorded after the customer was charged is surfaced as
// CodePaymentRecordFailed so it can be reconciled by hand.
func (s *Service) ValidateCheckout(ctx context.Context, sessionID, customerName, checkoutID string) (*Result, error) {
	if customerName == "" {
		return nil, errors.New(errors.CodeSessionIntegrity, "checkout requires a signed-in customer")
	}
	checkout, err := s.gateway.GetCheckout(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.Status != sumup.StatusPaid {
		return nil, errors.New(errors.CodePaymentDeclined,
			fmt.Sprintf("checkout %s is %s", checkoutID, checkout.Status)).
			WithDetails(map[string]any{"status": checkout.Status})
	}

	orderName := orderNameFromReference(checkout.Reference)
	order, err := s.orders.Fetch(ctx, customerName, orderName)
	if err != nil {
		return nil, err
	}
	ctx = s.withOrder(ctx, order.Name)

	if order.Docstatus == erpdocs.DocstatusDraft {
		if order, err = s.orders.Submit(ctx, order.Name); err != nil {
			return nil, err
		}
	}

	if err := s.recordPayment(ctx, order, checkout); err != nil {
		if s.logger != nil {
			s.logger.Error(ctx, "payment received but not recorded", err)
		}
		return nil, errors.Wrap(errors.CodePaymentRecordFailed, err,
			fmt.Sprintf("payment for order %q could not be recorded", order.Name)).
			WithDetails(map[string]any{
				"order":            order.Name,
				"transaction_code": checkout.TransactionCode,
			})
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info(ctx, "payment recorded")
	}
	return &Result{Order: order, TransactionCode: checkout.TransactionCode}, nil
}

// recordPayment books the gateway transaction as a submitted Payment Entry.
// The gateway reference number doubles as the dedup key: a transaction that
// already has an entry is never booked twice, so re-validating a paid
// checkout stays idempotent.
func (s *Service) recordPayment(ctx context.Context, order *erpdocs.SalesOrder, checkout *sumup.Checkout) error {
	doctype := string(erpdocs.DoctypePaymentEntry)
	referenceNo := fmt.Sprintf("SUMUP/%s", checkout.TransactionCode)

	_, err := s.erp.FirstResource(ctx, doctype, []string{"name"}, []erpnext.Filter{
		erpnext.Eq(doctype, "reference_no", referenceNo),
	})
	if err == nil {
		if s.logger != nil {
			s.logger.Info(ctx, "payment already recorded, duplicate validation ignored")
		}
		return nil
	}
	if !errors.HasCode(err, errors.CodeNotFound) {
		return err
	}

	amount := checkout.Amount.InexactFloat64()
	today := time.Now().Format("2006-01-02")
	_, err = s.erp.CreateResource(ctx, doctype, map[string]any{
		"naming_series":   s.erpCfg.PaymentSeries,
		"payment_type":    "Receive",
		"party_type":      "Customer",
		"party":           order.Customer,
		"company":         s.erpCfg.Company,
		"posting_date":    today,
		"paid_amount":     amount,
		"received_amount": amount,
		"paid_to":         s.payCfg.LedgerAccount,
		"mode_of_payment": s.payCfg.ModeOfPayment,
		"reference_no":    referenceNo,
		"reference_date":  today,
		"docstatus":       erpdocs.DocstatusSubmitted,
		"references": []map[string]any{{
			"reference_doctype": string(erpdocs.DoctypeSalesOrder),
			"reference_name":    order.Name,
			"allocated_amount":  amount,
		}},
	})
	return err
}

func (s *Service) withOrder(ctx context.Context, orderName string) context.Context {
	if s.logger == nil {
		return ctx
	}
	return s.logger.WithOrder(ctx, orderName)
}
