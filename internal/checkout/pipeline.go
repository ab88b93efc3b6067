package checkout

import "github.com/avidal-labs/brewshop-backend/internal/erpdocs"

// Step is one named stage of the checkout flow. Steps are ordered and
// independently checkable against the order; payment is the only step today,
// later stages (address validation, loyalty) slot in alongside it.
type Step interface {
	Name() string
	// Done reports whether the order already satisfies the step.
	Done(order *erpdocs.SalesOrder) bool
}

// Pipeline is the ordered set of steps an order walks through.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Steps() []Step { return p.steps }

// Step returns the named step.
func (p *Pipeline) Step(name string) (Step, bool) {
	for _, step := range p.steps {
		if step.Name() == name {
			return step, true
		}
	}
	return nil, false
}

// Next returns the first step the order has not satisfied yet.
func (p *Pipeline) Next(order *erpdocs.SalesOrder) (Step, bool) {
	for _, step := range p.steps {
		if !step.Done(order) {
			return step, true
		}
	}
	return nil, false
}

// paymentStep is satisfied once the order left draft: submission only ever
// happens on a recorded payment.
type paymentStep struct{}

func (paymentStep) Name() string { return "payment" }

func (paymentStep) Done(order *erpdocs.SalesOrder) bool {
	return order != nil && order.Docstatus != erpdocs.DocstatusDraft
}
