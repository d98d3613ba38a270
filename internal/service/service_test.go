package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxAltyn/Cash-Healer/internal/model"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
	"github.com/MaxAltyn/Cash-Healer/internal/yookassa"
)

type fakeStore struct {
	storage.Store

	active    []model.Order
	activeErr error

	order      model.Order
	orderErr   error
	payment    model.Payment
	paymentErr error
	owner      model.User
	ownerErr   error
	pending    []model.Order

	created   *storage.NewOrder
	createErr error

	transitions []string
	statusErr   map[string]error

	markedPayment int64
	markErr       error
}

func transitionKey(from, to model.OrderStatus) string {
	return fmt.Sprintf("%s>%s", from, to)
}

func (f *fakeStore) ActiveOrders(_ context.Context, _ int64) ([]model.Order, error) {
	return f.active, f.activeErr
}

func (f *fakeStore) CreateOrderWithPayment(_ context.Context, no storage.NewOrder) (model.Order, model.Payment, error) {
	f.created = &no
	if f.createErr != nil {
		return model.Order{}, model.Payment{}, f.createErr
	}
	order := model.Order{
		ID:          1,
		UserID:      no.UserID,
		ServiceType: no.ServiceType,
		Price:       no.Price,
		Status:      model.OrderPaymentPending,
	}
	payment := model.Payment{
		ID:               10,
		OrderID:          order.ID,
		GatewayPaymentID: no.GatewayPaymentID,
		PaymentURL:       no.PaymentURL,
		Amount:           no.Price,
		Status:           model.PaymentPending,
	}
	return order, payment, nil
}

func (f *fakeStore) OrderByID(_ context.Context, _ int64) (model.Order, error) {
	return f.order, f.orderErr
}

func (f *fakeStore) PaymentByOrderID(_ context.Context, _ int64) (model.Payment, error) {
	return f.payment, f.paymentErr
}

func (f *fakeStore) UserByID(_ context.Context, _ int64) (model.User, error) {
	return f.owner, f.ownerErr
}

func (f *fakeStore) UpdateOrderStatusFrom(_ context.Context, _ int64, from, to model.OrderStatus) error {
	key := transitionKey(from, to)
	if err, ok := f.statusErr[key]; ok && err != nil {
		return err
	}
	f.transitions = append(f.transitions, key)
	return nil
}

func (f *fakeStore) MarkPaymentSucceeded(_ context.Context, paymentID int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedPayment = paymentID
	return nil
}

func (f *fakeStore) PendingReportOrders(_ context.Context) ([]model.Order, error) {
	return f.pending, nil
}

type fakeGateway struct {
	createCalls  int
	createAmount int
	createDesc   string
	payment      yookassa.Payment
	createErr    error

	getCalls  int
	status    yookassa.Status
	statusErr error
}

func (f *fakeGateway) CreatePayment(_ context.Context, amount int, description string) (*yookassa.Payment, error) {
	f.createCalls++
	f.createAmount = amount
	f.createDesc = description
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := f.payment
	return &p, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, _ string) (*yookassa.Status, error) {
	f.getCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := f.status
	return &s, nil
}

func newTestService(t *testing.T, store *fakeStore, gw *fakeGateway) *Service {
	t.Helper()
	svc, err := New(store, gw, Config{
		Detox:    Offering{Price: 450, URL: "https://forms.example/detox"},
		Modeling: Offering{Price: 350, URL: "https://example.com/financial-modeling.html"},
	}, nil)
	require.NoError(t, err)
	return svc
}

var testUser = model.User{ID: 5, TelegramID: 100500}

func TestCreateOrderDetox(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{payment: yookassa.Payment{ID: "pay-1", URL: "https://pay.example/1"}}
	svc := newTestService(t, store, gw)

	res, err := svc.CreateOrder(context.Background(), testUser, model.ServiceDetox)
	require.NoError(t, err)

	assert.Equal(t, 450, gw.createAmount)
	assert.Equal(t, "Оплата: Финансовый детокс", gw.createDesc)
	require.NotNil(t, store.created)
	assert.Equal(t, "https://forms.example/detox", store.created.FormURL)
	assert.Equal(t, "pay-1", res.Payment.GatewayPaymentID)
	assert.Equal(t, model.OrderPaymentPending, res.Order.Status)
}

func TestCreateOrderModelingHasNoForm(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{payment: yookassa.Payment{ID: "pay-2", URL: "https://pay.example/2"}}
	svc := newTestService(t, store, gw)

	_, err := svc.CreateOrder(context.Background(), testUser, model.ServiceModeling)
	require.NoError(t, err)

	assert.Equal(t, 350, gw.createAmount)
	require.NotNil(t, store.created)
	assert.Empty(t, store.created.FormURL)
}

func TestCreateOrderBlockedByActive(t *testing.T) {
	store := &fakeStore{active: []model.Order{{ID: 3, Status: model.OrderPaymentPending}}}
	gw := &fakeGateway{}
	svc := newTestService(t, store, gw)

	_, err := svc.CreateOrder(context.Background(), testUser, model.ServiceDetox)
	assert.ErrorIs(t, err, ErrActiveOrder)
	assert.Zero(t, gw.createCalls, "gateway must not be called when an active order blocks creation")
}

func TestCreateOrderGatewayDown(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{createErr: errors.New("boom")}
	svc := newTestService(t, store, gw)

	_, err := svc.CreateOrder(context.Background(), testUser, model.ServiceDetox)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Nil(t, store.created)
}

func TestCreateOrderLosesInsertRace(t *testing.T) {
	store := &fakeStore{createErr: storage.ErrActiveOrderExists}
	gw := &fakeGateway{payment: yookassa.Payment{ID: "pay-3", URL: "https://pay.example/3"}}
	svc := newTestService(t, store, gw)

	_, err := svc.CreateOrder(context.Background(), testUser, model.ServiceDetox)
	assert.ErrorIs(t, err, ErrActiveOrder)
}

func pendingOrderFixture(st model.ServiceType) (model.Order, model.Payment) {
	order := model.Order{ID: 7, UserID: testUser.ID, ServiceType: st, Price: 450, Status: model.OrderPaymentPending}
	payment := model.Payment{ID: 70, OrderID: 7, GatewayPaymentID: "pay-7", Status: model.PaymentPending}
	return order, payment
}

func TestConfirmPaymentDetox(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{status: yookassa.Status{Paid: true, Status: "succeeded"}}
	svc := newTestService(t, store, gw)

	res, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	require.NoError(t, err)

	assert.Equal(t, ConfirmOK, res.Outcome)
	assert.Equal(t, model.OrderFormSent, res.Order.Status)
	assert.Equal(t, int64(70), store.markedPayment)
	assert.Equal(t, []string{
		transitionKey(model.OrderPaymentPending, model.OrderPaymentConfirmed),
		transitionKey(model.OrderPaymentConfirmed, model.OrderFormSent),
	}, store.transitions)
}

func TestConfirmPaymentModelingCompletes(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceModeling)
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{status: yookassa.Status{Paid: true, Status: "succeeded"}}
	svc := newTestService(t, store, gw)

	res, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	require.NoError(t, err)

	assert.Equal(t, ConfirmOK, res.Outcome)
	assert.Equal(t, model.OrderCompleted, res.Order.Status)
}

func TestConfirmPaymentReplayAbsorbed(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	order.Status = model.OrderFormSent
	payment.Status = model.PaymentSucceeded
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{}
	svc := newTestService(t, store, gw)

	res, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	require.NoError(t, err)

	assert.Equal(t, ConfirmAlreadyDone, res.Outcome)
	assert.Zero(t, gw.getCalls, "replay must not hit the gateway")
	assert.Empty(t, store.transitions)
}

func TestConfirmPaymentReplayHealsStuckDelivery(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	order.Status = model.OrderPaymentConfirmed
	payment.Status = model.PaymentSucceeded
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{}
	svc := newTestService(t, store, gw)

	res, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	require.NoError(t, err)

	assert.Equal(t, ConfirmAlreadyDone, res.Outcome)
	assert.Equal(t, model.OrderFormSent, res.Order.Status)
	assert.Zero(t, gw.getCalls)
	assert.Equal(t, []string{
		transitionKey(model.OrderPaymentConfirmed, model.OrderFormSent),
	}, store.transitions)
}

func TestConfirmPaymentOrderLookupOutageIsRetryable(t *testing.T) {
	store := &fakeStore{orderErr: errors.New("dial tcp: i/o timeout")}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrConfirmRetryable)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmPaymentPaymentLookupOutageIsRetryable(t *testing.T) {
	order, _ := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, paymentErr: errors.New("dial tcp: i/o timeout")}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrConfirmRetryable)
	assert.NotErrorIs(t, err, ErrTokenMismatch)
}

func TestConfirmPaymentMissingPaymentRowIsTokenMismatch(t *testing.T) {
	order, _ := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, paymentErr: storage.ErrPaymentNotFound}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestConfirmPaymentForgedToken(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{}
	svc := newTestService(t, store, gw)

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "forged-id")
	assert.ErrorIs(t, err, ErrTokenMismatch)
	assert.Zero(t, gw.getCalls)
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	store := &fakeStore{orderErr: storage.ErrOrderNotFound}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.ConfirmPayment(context.Background(), testUser, 404, "pay")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmPaymentNotPaidYet(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{status: yookassa.Status{Paid: false, Status: "pending"}}
	svc := newTestService(t, store, gw)

	res, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	require.NoError(t, err)
	assert.Equal(t, ConfirmNotPaid, res.Outcome)
	assert.Empty(t, store.transitions)
}

func TestConfirmPaymentGatewayError(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, payment: payment}
	gw := &fakeGateway{statusErr: errors.New("timeout")}
	svc := newTestService(t, store, gw)

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrConfirmRetryable)
	assert.Empty(t, store.transitions)
}

func TestConfirmPaymentRollsBackOnPaymentWriteFailure(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{order: order, payment: payment, markErr: errors.New("disk full")}
	gw := &fakeGateway{status: yookassa.Status{Paid: true}}
	svc := newTestService(t, store, gw)

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrConfirmRetryable)
	assert.Contains(t, store.transitions,
		transitionKey(model.OrderPaymentConfirmed, model.OrderPaymentPending))
}

func TestConfirmPaymentIncidentWhenRollbackFails(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{
		order:   order,
		payment: payment,
		markErr: errors.New("disk full"),
		statusErr: map[string]error{
			transitionKey(model.OrderPaymentConfirmed, model.OrderPaymentPending): storage.ErrStatusConflict,
		},
	}
	gw := &fakeGateway{status: yookassa.Status{Paid: true}}
	svc := newTestService(t, store, gw)

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")

	var incident *IncidentError
	require.ErrorAs(t, err, &incident)
	assert.NotEmpty(t, incident.Code)
}

func TestConfirmPaymentDeliveryStuck(t *testing.T) {
	order, payment := pendingOrderFixture(model.ServiceDetox)
	store := &fakeStore{
		order:   order,
		payment: payment,
		statusErr: map[string]error{
			transitionKey(model.OrderPaymentConfirmed, model.OrderFormSent): storage.ErrStatusConflict,
		},
	}
	gw := &fakeGateway{status: yookassa.Status{Paid: true}}
	svc := newTestService(t, store, gw)

	_, err := svc.ConfirmPayment(context.Background(), testUser, 7, "pay-7")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, int64(70), store.markedPayment, "payment state stays settled")
}

func TestSendReport(t *testing.T) {
	store := &fakeStore{
		order: model.Order{ID: 9, UserID: testUser.ID, ServiceType: model.ServiceDetox, Status: model.OrderFormSent},
		owner: model.User{ID: testUser.ID, TelegramID: 100500},
	}
	svc := newTestService(t, store, &fakeGateway{})

	res, err := svc.SendReport(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, model.OrderCompleted, res.Order.Status)
	assert.Equal(t, int64(100500), res.CustomerChatID)
	assert.True(t, res.CustomerNotified)
	assert.Contains(t, store.transitions, transitionKey(model.OrderFormSent, model.OrderCompleted))
}

func TestSendReportFromStuckConfirmedOrder(t *testing.T) {
	store := &fakeStore{
		order: model.Order{ID: 9, UserID: testUser.ID, ServiceType: model.ServiceDetox, Status: model.OrderPaymentConfirmed},
		owner: model.User{ID: testUser.ID, TelegramID: 100500},
	}
	svc := newTestService(t, store, &fakeGateway{})

	res, err := svc.SendReport(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, model.OrderCompleted, res.Order.Status)
	assert.Contains(t, store.transitions, transitionKey(model.OrderPaymentConfirmed, model.OrderCompleted))
}

func TestSendReportOrderLookupOutageIsNotNotFound(t *testing.T) {
	store := &fakeStore{orderErr: errors.New("dial tcp: i/o timeout")}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.SendReport(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
}

func TestSendReportRejectsWrongStatus(t *testing.T) {
	store := &fakeStore{
		order: model.Order{ID: 9, Status: model.OrderPaymentPending},
	}
	svc := newTestService(t, store, &fakeGateway{})

	_, err := svc.SendReport(context.Background(), 9)
	assert.Error(t, err)
	assert.Empty(t, store.transitions)
}

func TestSendReportSurvivesOwnerLookupFailure(t *testing.T) {
	store := &fakeStore{
		order:    model.Order{ID: 9, UserID: 77, Status: model.OrderProcessing},
		ownerErr: storage.ErrUserNotFound,
	}
	svc := newTestService(t, store, &fakeGateway{})

	res, err := svc.SendReport(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, res.CustomerNotified)
}
