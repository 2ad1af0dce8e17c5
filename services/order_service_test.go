package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CM-market/cameroon-made-market/models"
)

// fakeStore is an in-memory OrderRepository + PaymentRepository used across
// the service tests.
type fakeStore struct {
	orders   map[uuid.UUID]*models.Order
	items    map[uuid.UUID][]models.OrderItem
	payments map[uuid.UUID]*models.Payment

	failItemInsert bool // CreateWithItems fails atomically
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[uuid.UUID]*models.Order),
		items:    make(map[uuid.UUID][]models.OrderItem),
		payments: make(map[uuid.UUID]*models.Payment),
	}
}

func (f *fakeStore) CreateWithItems(ctx context.Context, order *models.Order) error {
	if f.failItemInsert {
		return errors.New("item insert failed")
	}
	cp := *order
	f.orders[order.ID] = &cp
	f.items[order.ID] = append([]models.OrderItem(nil), order.OrderItems...)
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) Find(ctx context.Context, userID *uuid.UUID, status *models.OrderStatus) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		if userID != nil && order.UserID != *userID {
			continue
		}
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (f *fakeStore) FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	return nil
}

func (f *fakeStore) DeleteWithItems(ctx context.Context, orderID uuid.UUID) error {
	if _, ok := f.orders[orderID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.orders, orderID)
	delete(f.items, orderID)
	return nil
}

func newOrderService(store *fakeStore) *OrderService {
	return NewOrderService(store, nil, zap.NewNop())
}

func validCreateRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerName:    "Jean Mbarga",
		CustomerPhone:   "677112233",
		DeliveryAddress: "Rue 1.234, Bastos",
		City:            "Yaounde",
		Region:          "Centre",
		Items: []CreateOrderItem{
			{ProductID: uuid.New(), Quantity: 2, Price: 1500},
			{ProductID: uuid.New(), Quantity: 1, Price: 3000},
		},
	}
}

func TestCreateOrder_ComputesTotal(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	order, serr := svc.CreateOrder(context.Background(), uuid.New(), "", validCreateRequest())
	assert.Nil(t, serr)
	assert.Equal(t, 6000.0, order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, store.items[order.ID], 2)
	assert.Equal(t, 1500.0, store.items[order.ID][0].UnitPrice)
}

func TestCreateOrder_EmptyItemsRejected(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	req := validCreateRequest()
	req.Items = nil

	order, serr := svc.CreateOrder(context.Background(), uuid.New(), "", req)
	assert.Nil(t, order)
	assert.Equal(t, KindValidation, serr.Kind)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_InvalidQuantityRejected(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	req := validCreateRequest()
	req.Items[0].Quantity = 0

	_, serr := svc.CreateOrder(context.Background(), uuid.New(), "", req)
	assert.NotNil(t, serr)
	assert.Equal(t, KindValidation, serr.Kind)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_NegativePriceRejected(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	req := validCreateRequest()
	req.Items[1].Price = -1

	_, serr := svc.CreateOrder(context.Background(), uuid.New(), "", req)
	assert.NotNil(t, serr)
	assert.Equal(t, KindValidation, serr.Kind)
}

func TestCreateOrder_PersistFailureLeavesNothing(t *testing.T) {
	store := newFakeStore()
	store.failItemInsert = true
	svc := newOrderService(store)

	_, serr := svc.CreateOrder(context.Background(), uuid.New(), "", validCreateRequest())
	assert.NotNil(t, serr)
	assert.Equal(t, KindStorage, serr.Kind)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
}

func TestUpdateOrderStatus_FullLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	order, serr := svc.CreateOrder(context.Background(), uuid.New(), "", validCreateRequest())
	assert.Nil(t, serr)

	for _, next := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		updated, serr := svc.UpdateOrderStatus(context.Background(), order.ID, next)
		assert.Nil(t, serr)
		assert.Equal(t, next, updated.Status)
	}
}

func TestUpdateOrderStatus_RejectsInvalidTransition(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	order, _ := svc.CreateOrder(context.Background(), uuid.New(), "", validCreateRequest())

	// pending -> shipped skips processing
	_, serr := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusShipped)
	assert.NotNil(t, serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)
	assert.Equal(t, KindConflict, serr.Kind)

	// walk to shipped, then try to go back to pending
	_, serr = svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusProcessing)
	assert.Nil(t, serr)
	_, serr = svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusShipped)
	assert.Nil(t, serr)
	_, serr = svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusPending)
	assert.NotNil(t, serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc := newOrderService(newFakeStore())

	_, serr := svc.UpdateOrderStatus(context.Background(), uuid.New(), models.OrderStatusProcessing)
	assert.NotNil(t, serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}

func TestListOrders_FiltersConjunctively(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	userA := uuid.New()
	userB := uuid.New()

	orderA, _ := svc.CreateOrder(context.Background(), userA, "", validCreateRequest())
	orderB, _ := svc.CreateOrder(context.Background(), userB, "", validCreateRequest())
	_, serr := svc.UpdateOrderStatus(context.Background(), orderB.ID, models.OrderStatusCancelled)
	assert.Nil(t, serr)

	pending := models.OrderStatusPending
	orders, serr := svc.ListOrders(context.Background(), &userA, &pending)
	assert.Nil(t, serr)
	assert.Len(t, orders, 1)
	assert.Equal(t, orderA.ID, orders[0].ID)

	orders, serr = svc.ListOrders(context.Background(), &userB, &pending)
	assert.Nil(t, serr)
	assert.Empty(t, orders)
}

func TestDeleteOrder_RemovesItems(t *testing.T) {
	store := newFakeStore()
	svc := newOrderService(store)

	order, _ := svc.CreateOrder(context.Background(), uuid.New(), "", validCreateRequest())

	serr := svc.DeleteOrder(context.Background(), order.ID)
	assert.Nil(t, serr)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)

	serr = svc.DeleteOrder(context.Background(), order.ID)
	assert.NotNil(t, serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}
