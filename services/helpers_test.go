package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"checkout-service/models"
	"checkout-service/providers"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test_secret"

func newTestRepo(t *testing.T) repository.OrderRepository {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Order{}))
	return repository.NewGormOrderRepository(db)
}

// ---- fakes ----

type fakeGateway struct {
	intent *models.PaymentIntent
	err    error

	gotAmount   float64
	gotCurrency string
	gotReceipt  string
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount float64, currency, receipt string) (*models.PaymentIntent, error) {
	g.gotAmount, g.gotCurrency, g.gotReceipt = amount, currency, receipt
	if g.err != nil {
		return nil, g.err
	}
	if g.intent != nil {
		return g.intent, nil
	}
	return &models.PaymentIntent{
		ProviderOrderID: "order_test_1",
		Amount:          providers.ToMinorUnits(amount),
		Currency:        currency,
		Receipt:         receipt,
	}, nil
}

func (g *fakeGateway) VerifyCallback(orderID, paymentID, signature string) bool {
	return providers.VerifySignature(orderID, paymentID, signature, testSecret)
}

type notification struct {
	recipient string
	orderID   string
	amount    float64
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) NotifyPaymentConfirmed(_ context.Context, recipient, orderID string, amount float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{recipient, orderID, amount})
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCatalog struct {
	images map[string]string
}

func (c *fakeCatalog) FirstImage(_ context.Context, productID string) (string, error) {
	img, ok := c.images[productID]
	if !ok {
		return "", errors.New("product service unavailable")
	}
	return img, nil
}

// brokenRepo fails every call with a non-domain error.
type brokenRepo struct {
	repository.OrderRepository
}

var errDB = errors.New("connection refused")

func (brokenRepo) Create(context.Context, *models.Order) error { return errDB }
func (brokenRepo) FindByOrderID(context.Context, string) (*models.Order, error) {
	return nil, errDB
}
func (brokenRepo) FindAll(context.Context) ([]models.Order, error) { return nil, errDB }
func (brokenRepo) MarkPaid(context.Context, string, models.PaymentInfo) (*models.Order, bool, error) {
	return nil, false, errDB
}

// ---- fixtures ----

var (
	owner = models.CurrentUser{ID: "user-1", Role: "user", Email: "buyer@example.com"}
	other = models.CurrentUser{ID: "user-2", Role: "user"}
	admin = models.CurrentUser{ID: "admin-1", Role: models.RoleAdmin}
)

func createRequest(orderID string) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Email:   "buyer@example.com",
		Name:    "Buyer",
		OrderID: orderID,
		Phone:   "9999999999",
		Address: &models.Address{
			Name: "Buyer", Phone: "9999999999", Country: "India",
			AddressLine1: "1 Main St", City: "Pune", State: "MH", Pincode: "411001",
		},
		Amount: 599,
		Products: []models.ProductRequest{
			{ProductID: "p1", Name: "Tee", Price: 599, Quantity: 1, Size: "M", Color: "red"},
		},
	}
}
