package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
)

func TestPipelineStepLookup(t *testing.T) {
	pipe := NewPipeline(paymentStep{})

	step, ok := pipe.Step("payment")
	require.True(t, ok)
	assert.Equal(t, "payment", step.Name())

	_, ok = pipe.Step("loyalty")
	assert.False(t, ok)
}

func TestPipelineNextStopsAtUnpaidOrder(t *testing.T) {
	pipe := NewPipeline(paymentStep{})

	next, ok := pipe.Next(&erpdocs.SalesOrder{Docstatus: erpdocs.DocstatusDraft})
	require.True(t, ok)
	assert.Equal(t, "payment", next.Name())

	_, ok = pipe.Next(&erpdocs.SalesOrder{Docstatus: erpdocs.DocstatusSubmitted})
	assert.False(t, ok)
}

func TestStatusReflectsOrderDocstatus(t *testing.T) {
	order := draftOrder("31.5")
	svc := newTestService(&fakeGateway{}, &fakeOrders{order: order}, &fakeERP{}, &fakeCarts{})

	steps, err := svc.Status(context.Background(), "CUST-1", order.Name)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, StepStatus{Name: "payment", Done: false}, steps[0])

	order.Docstatus = erpdocs.DocstatusSubmitted
	steps, err = svc.Status(context.Background(), "CUST-1", order.Name)
	require.NoError(t, err)
	assert.True(t, steps[0].Done)
}

func TestStatusRequiresCustomer(t *testing.T) {
	svc := newTestService(&fakeGateway{}, &fakeOrders{}, &fakeERP{}, &fakeCarts{})

	_, err := svc.Status(context.Background(), "", "SO-WEB-24-001")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeSessionIntegrity))
}
