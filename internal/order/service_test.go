package order_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/customer"
	"github.com/cox101/Savannah-Microservice/internal/order"
)

type fakeRepo struct {
	orders        map[uuid.UUID]*order.Order
	events        []contracts.NotificationEvent
	notifications map[uuid.UUID][]order.Notification
	numbers       map[string]bool

	// afterGet runs once after the next Get, to simulate a concurrent
	// writer slipping in between the service's read and its update.
	afterGet func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:        make(map[uuid.UUID]*order.Order),
		notifications: make(map[uuid.UUID][]order.Notification),
		numbers:       make(map[string]bool),
	}
}

func (r *fakeRepo) Create(ctx context.Context, o *order.Order, evt contracts.NotificationEvent) error {
	cp := *o
	r.orders[o.ID] = &cp
	r.numbers[o.OrderNumber] = true
	r.events = append(r.events, evt)
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	if r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook()
	}
	return &cp, nil
}

func (r *fakeRepo) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status, evt *contracts.NotificationEvent) error {
	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return order.ErrStatusConflict
	}
	o.Status = to
	if evt != nil {
		r.events = append(r.events, *evt)
	}
	return nil
}

func (r *fakeRepo) EnqueueEvent(ctx context.Context, evt contracts.NotificationEvent) error {
	r.events = append(r.events, evt)
	return nil
}

func (r *fakeRepo) ListNotifications(ctx context.Context, orderID uuid.UUID) ([]order.Notification, error) {
	return r.notifications[orderID], nil
}

func (r *fakeRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	return r.numbers[number], nil
}

type fakeDirectory struct {
	customers map[uuid.UUID]*customer.Customer
}

func (d *fakeDirectory) Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	c, ok := d.customers[id]
	if !ok {
		return nil, customer.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func newFixture(t *testing.T) (*order.Service, *fakeRepo, *customer.Customer) {
	t.Helper()

	repo := newFakeRepo()
	owner := &customer.Customer{
		ID:          uuid.New(),
		Code:        "CUST000001",
		Name:        "Wanjiku",
		PhoneNumber: "+254700123456",
	}
	dir := &fakeDirectory{customers: map[uuid.UUID]*customer.Customer{owner.ID: owner}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return order.NewService(repo, dir, logger), repo, owner
}

func mustCreate(t *testing.T, svc *order.Service, customerID uuid.UUID) *order.Order {
	t.Helper()

	o, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: customerID,
		Item:       "Maize flour",
		Amount:     decimal.RequireFromString("99.99"),
		Quantity:   1,
	})
	require.NoError(t, err)
	return o
}

func advance(t *testing.T, svc *order.Service, id uuid.UUID, statuses ...order.Status) *order.Order {
	t.Helper()

	var o *order.Order
	var err error
	for _, st := range statuses {
		o, err = svc.UpdateStatus(context.Background(), id, st)
		require.NoError(t, err)
	}
	return o
}

func TestCreate_PersistsCreatedOrderAndEnqueuesOneEvent(t *testing.T) {
	svc, repo, owner := newFixture(t)

	o := mustCreate(t, svc, owner.ID)

	assert.Equal(t, order.StatusCreated, o.Status)
	assert.Regexp(t, `^ORD\d{12}$`, o.OrderNumber)
	assert.Equal(t, "99.99", o.Amount.String())

	require.Len(t, repo.events, 1)
	evt := repo.events[0]
	assert.Equal(t, contracts.EventOrderReceived, evt.Type)
	assert.Equal(t, o.ID.String(), evt.OrderID)
	assert.Equal(t, "Maize flour", evt.Item)
	assert.Equal(t, "99.99", evt.Total)
	assert.Equal(t, owner.PhoneNumber, evt.PhoneNumber)
	assert.NotEmpty(t, evt.EventID)
}

func TestCreate_TotalMultipliesQuantity(t *testing.T) {
	svc, repo, owner := newFixture(t)

	_, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: owner.ID,
		Item:       "Sugar",
		Amount:     decimal.RequireFromString("120.50"),
		Quantity:   3,
	})
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	assert.Equal(t, "361.50", repo.events[0].Total)
}

func TestCreate_Validation(t *testing.T) {
	svc, repo, owner := newFixture(t)

	cases := []struct {
		name string
		in   order.CreateInput
	}{
		{"empty item", order.CreateInput{CustomerID: owner.ID, Item: "  ", Amount: decimal.NewFromInt(10), Quantity: 1}},
		{"zero amount", order.CreateInput{CustomerID: owner.ID, Item: "Tea", Amount: decimal.Zero, Quantity: 1}},
		{"negative amount", order.CreateInput{CustomerID: owner.ID, Item: "Tea", Amount: decimal.NewFromInt(-5), Quantity: 1}},
		{"zero quantity", order.CreateInput{CustomerID: owner.ID, Item: "Tea", Amount: decimal.NewFromInt(10), Quantity: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			var ve *order.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}

	assert.Empty(t, repo.events, "rejected orders must not enqueue notifications")
}

func TestCreate_UnknownCustomer(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: uuid.New(),
		Item:       "Tea",
		Amount:     decimal.NewFromInt(10),
		Quantity:   1,
	})
	assert.ErrorIs(t, err, customer.ErrCustomerNotFound)
}

func TestUpdateStatus_StrictSequence(t *testing.T) {
	svc, repo, owner := newFixture(t)
	o := mustCreate(t, svc, owner.ID)

	// Jumping created -> shipped must pass through processing first.
	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusShipped)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusCreated, invalid.From)
	assert.Equal(t, order.StatusShipped, invalid.To)

	updated := advance(t, svc, o.ID, order.StatusProcessing)
	assert.Equal(t, order.StatusProcessing, updated.Status)
	assert.Len(t, repo.events, 1, "moving into processing is silent")

	updated = advance(t, svc, o.ID, order.StatusShipped)
	assert.Equal(t, order.StatusShipped, updated.Status)
	require.Len(t, repo.events, 2)
	assert.Equal(t, contracts.EventOrderShipped, repo.events[1].Type)

	updated = advance(t, svc, o.ID, order.StatusDelivered)
	assert.Equal(t, order.StatusDelivered, updated.Status)
	require.Len(t, repo.events, 3)
	assert.Equal(t, contracts.EventOrderDelivered, repo.events[2].Type)
}

func TestUpdateStatus_DeliveredIsTerminal(t *testing.T) {
	svc, repo, owner := newFixture(t)
	o := mustCreate(t, svc, owner.ID)
	advance(t, svc, o.ID, order.StatusProcessing, order.StatusShipped, order.StatusDelivered)
	eventsBefore := len(repo.events)

	for _, to := range []order.Status{order.StatusCreated, order.StatusProcessing, order.StatusShipped, order.StatusCancelled} {
		_, err := svc.UpdateStatus(context.Background(), o.ID, to)
		var invalid *order.InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "delivered -> %s must fail", to)
	}

	// Same-status request is a no-op, not a violation.
	updated, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, updated.Status)
	assert.Len(t, repo.events, eventsBefore, "no-op must not enqueue")
}

func TestUpdateStatus_CancelReachability(t *testing.T) {
	svc, repo, owner := newFixture(t)

	paths := [][]order.Status{
		{},
		{order.StatusProcessing},
		{order.StatusProcessing, order.StatusShipped},
	}

	for _, path := range paths {
		o := mustCreate(t, svc, owner.ID)
		advance(t, svc, o.ID, path...)

		updated, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, updated.Status)

		last := repo.events[len(repo.events)-1]
		assert.Equal(t, contracts.EventOrderCancelled, last.Type)

		// Cancelled is terminal.
		_, err = svc.UpdateStatus(context.Background(), o.ID, order.StatusProcessing)
		var invalid *order.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
	}
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestUpdateStatus_ConcurrentTransitionLoses(t *testing.T) {
	svc, repo, owner := newFixture(t)
	o := mustCreate(t, svc, owner.ID)

	// A concurrent cancel lands between our read and our update.
	repo.afterGet = func() {
		repo.orders[o.ID].Status = order.StatusCancelled
	}

	_, err := svc.UpdateStatus(context.Background(), o.ID, order.StatusProcessing)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusCancelled, invalid.From)
	assert.Equal(t, order.StatusProcessing, invalid.To)
}

func TestResend_CancelledOrderResendsCancellation(t *testing.T) {
	svc, repo, owner := newFixture(t)
	o := mustCreate(t, svc, owner.ID)
	advance(t, svc, o.ID, order.StatusCancelled)
	eventsBefore := len(repo.events)

	require.NoError(t, svc.Resend(context.Background(), o.ID))

	require.Len(t, repo.events, eventsBefore+1)
	resent := repo.events[len(repo.events)-1]
	assert.Equal(t, contracts.EventOrderCancelled, resent.Type)
	assert.NotEqual(t, repo.events[eventsBefore-1].EventID, resent.EventID, "resend is a fresh event")

	current, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, current.Status, "resend must not change state")
}

func TestResend_CreatedOrderResendsReceipt(t *testing.T) {
	svc, repo, owner := newFixture(t)
	o := mustCreate(t, svc, owner.ID)

	require.NoError(t, svc.Resend(context.Background(), o.ID))

	require.Len(t, repo.events, 2)
	assert.Equal(t, contracts.EventOrderReceived, repo.events[1].Type)
}

func TestResend_UnknownOrder(t *testing.T) {
	svc, _, _ := newFixture(t)

	err := svc.Resend(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}
