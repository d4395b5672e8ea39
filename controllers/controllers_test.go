package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/controllers"
	"checkout-service/middleware"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/providers"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const keySecret = "test_secret"

// ---- fakes ----

type stubGateway struct {
	err error
}

func (g *stubGateway) CreateIntent(_ context.Context, amount float64, currency, receipt string) (*models.PaymentIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &models.PaymentIntent{
		ProviderOrderID: "order_" + receipt,
		Amount:          providers.ToMinorUnits(amount),
		Currency:        currency,
		Receipt:         receipt,
	}, nil
}

func (g *stubGateway) VerifyCallback(orderID, paymentID, signature string) bool {
	return providers.VerifySignature(orderID, paymentID, signature, keySecret)
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) NotifyPaymentConfirmed(context.Context, string, string, float64) {
	n.calls++
}

// ---- helpers ----

type testApp struct {
	router   *gin.Engine
	repo     repository.OrderRepository
	gateway  *stubGateway
	notifier *countingNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	app := &testApp{
		repo:     repository.NewGormOrderRepository(db),
		gateway:  &stubGateway{},
		notifier: &countingNotifier{},
	}
	metrics := awspkg.NewDisabledMetricsClient()
	orderSvc := services.NewOrderService(app.repo, nil, nil, metrics, zap.NewNop())
	paymentSvc := services.NewPaymentService(app.gateway, app.repo, app.notifier, nil, metrics, "INR", zap.NewNop())

	app.router = gin.New()
	routes.RegisterRoutes(app.router,
		controllers.NewOrderController(orderSvc),
		controllers.NewPaymentController(paymentSvc),
		[]byte("jwt-secret"))
	return app
}

type caller struct {
	id   string
	role string
}

var (
	buyer    = caller{"user-1", "user"}
	stranger = caller{"user-2", "user"}
	admin    = caller{"admin-1", models.RoleAdmin}
	nobody   = caller{}
)

func (a *testApp) do(t *testing.T, who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set(middleware.HeaderUserID, who.id)
		req.Header.Set(middleware.HeaderUserRole, who.role)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func orderBody(orderID string) map[string]interface{} {
	return map[string]interface{}{
		"email":   "buyer@example.com",
		"name":    "Buyer",
		"orderId": orderID,
		"phone":   "9999999999",
		"address": map[string]interface{}{
			"name": "Buyer", "phone": "9999999999", "country": "India",
			"addressLine1": "1 Main St", "city": "Pune", "state": "MH", "pincode": "411001",
		},
		"amount": 599,
		"products": []map[string]interface{}{
			{"productId": "p1", "name": "Tee", "price": 599, "quantity": 1, "size": "M", "color": "red"},
		},
	}
}

func verifyBody(orderID string) map[string]interface{} {
	providerOrder, providerPayment := "order_"+orderID, "pay_"+orderID
	return map[string]interface{}{
		"razorpay_order_id":   providerOrder,
		"razorpay_payment_id": providerPayment,
		"razorpay_signature":  providers.ComputeSignature(providerOrder, providerPayment, keySecret),
		"receipt":             orderID,
	}
}

// ---- tests ----

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, nobody, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "ord_1", order["orderId"])
	assert.Equal(t, "Initiated", order["status"])
	assert.Equal(t, "unshipped", order["deliveryStatus"])

	w = app.do(t, buyer, http.MethodPost, "/payments/create", map[string]interface{}{
		"amount": 599, "currency": "INR", "receipt": "ord_1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	intent := decode(t, w)
	assert.Equal(t, "order_ord_1", intent["id"])
	assert.Equal(t, float64(59900), intent["amount"])
	assert.Equal(t, "ord_1", intent["receipt"])

	w = app.do(t, buyer, http.MethodPost, "/payments/verify", verifyBody("ord_1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "Paid", paid["status"])
	assert.Equal(t, 1, app.notifier.calls)

	w = app.do(t, buyer, http.MethodGet, "/orders/ord_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Paid", decode(t, w)["order"].(map[string]interface{})["status"])

	// replayed callback is accepted without a second notification
	w = app.do(t, buyer, http.MethodPost, "/payments/verify", verifyBody("ord_1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, app.notifier.calls)
}

func TestVerifyPayment_TamperedSignature(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_2")).Code)

	body := verifyBody("ord_2")
	body["razorpay_payment_id"] = "pay_someone_else"
	w := app.do(t, buyer, http.MethodPost, "/payments/verify", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VerificationFailed", decode(t, w)["code"])

	stored, err := app.repo.FindByOrderID(context.Background(), "ord_2")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInitiated, stored.Status)
	assert.Zero(t, app.notifier.calls)
}

func TestCreateOrder_Errors(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1")).Code)

	w := app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DuplicateOrder", decode(t, w)["code"])

	missingEmail := orderBody("ord_3")
	delete(missingEmail, "email")
	w = app.do(t, buyer, http.MethodPost, "/orders", missingEmail)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["code"])

	w = app.do(t, nobody, http.MethodPost, "/orders", orderBody("ord_4"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder_MalformedJSON(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, buyer.id)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["code"])
}

func TestGetMyOrders(t *testing.T) {
	app := newTestApp(t)
	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody(id)).Code)
	}

	w := app.do(t, buyer, http.MethodGet, "/orders/my?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Len(t, resp["orders"], 2)
	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, float64(3), meta["total"])
	assert.Equal(t, float64(2), meta["totalPages"])

	w = app.do(t, stranger, http.MethodGet, "/orders/my", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["orders"])
}

func TestGetOrder_Access(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1")).Code)

	assert.Equal(t, http.StatusOK, app.do(t, admin, http.MethodGet, "/orders/ord_1", nil).Code)

	w := app.do(t, stranger, http.MethodGet, "/orders/ord_1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decode(t, w)["code"])

	w = app.do(t, buyer, http.MethodGet, "/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", decode(t, w)["code"])
}

func TestCancelOrder(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1")).Code)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_2")).Code)

	w := app.do(t, buyer, http.MethodPatch, "/orders/ord_1/cancel", map[string]string{"cancellationReason": "ordered twice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "Cancelled", order["status"])
	assert.Equal(t, "ordered twice", order["cancellationReason"])

	w = app.do(t, buyer, http.MethodPatch, "/orders/ord_2/cancel", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["code"])

	w = app.do(t, admin, http.MethodPatch, "/orders/ord_2", map[string]string{"deliveryStatus": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, buyer, http.MethodPatch, "/orders/ord_2/cancel", map[string]string{"cancellationReason": "late"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NotCancelable", decode(t, w)["code"])
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1")).Code)

	assert.Equal(t, http.StatusForbidden, app.do(t, buyer, http.MethodGet, "/orders", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, buyer, http.MethodPatch, "/orders/ord_1", map[string]string{"trackingId": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, buyer, http.MethodDelete, "/orders/ord_1", nil).Code)

	w := app.do(t, admin, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)

	w = app.do(t, admin, http.MethodPatch, "/orders/ord_1", map[string]string{"status": "Bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, admin, http.MethodPatch, "/orders/ord_1", map[string]string{"status": "Paid"})
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, admin, http.MethodPatch, "/orders/ord_1", map[string]string{"status": "Initiated"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", decode(t, w)["code"])

	assert.Equal(t, http.StatusOK, app.do(t, admin, http.MethodDelete, "/orders/ord_1", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, admin, http.MethodDelete, "/orders/ord_1", nil).Code)
}

func TestAdminUpdate_CannotCancelShippedOrder(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_1")).Code)
	require.Equal(t, http.StatusCreated, app.do(t, buyer, http.MethodPost, "/orders", orderBody("ord_2")).Code)

	w := app.do(t, admin, http.MethodPatch, "/orders/ord_1", map[string]string{"deliveryStatus": "shipped"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, admin, http.MethodPatch, "/orders/ord_1", map[string]string{"status": "Cancelled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NotCancelable", decode(t, w)["code"])

	w = app.do(t, admin, http.MethodPatch, "/orders/ord_2", map[string]string{"status": "Cancelled", "deliveryStatus": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NotCancelable", decode(t, w)["code"])

	w = app.do(t, admin, http.MethodGet, "/orders/ord_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "Initiated", order["status"])
	assert.Equal(t, "shipped", order["deliveryStatus"])
}

func TestCreatePayment_Errors(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, buyer, http.MethodPost, "/payments/create", map[string]interface{}{"amount": 0, "receipt": "r"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	app.gateway.err = providers.ErrGateway
	w = app.do(t, buyer, http.MethodPost, "/payments/create", map[string]interface{}{"amount": 10, "receipt": "r"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "GatewayError", decode(t, w)["code"])

	assert.Equal(t, http.StatusUnauthorized, app.do(t, nobody, http.MethodPost, "/payments/create", nil).Code)
}

func TestCreateOrder_MissingFieldsAreNamed(t *testing.T) {
	app := newTestApp(t)
	body := orderBody("ord_5")
	delete(body, "email")
	delete(body, "orderId")

	w := app.do(t, buyer, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields: email, orderId", decode(t, w)["error"])
}

func TestCreateOrder_RejectsMalformedEmail(t *testing.T) {
	app := newTestApp(t)
	body := orderBody("ord_6")
	body["email"] = "buyer-at-example"

	w := app.do(t, buyer, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid fields: email", decode(t, w)["error"])
}

func TestVerifyPayment_MissingSignatureIsNamed(t *testing.T) {
	app := newTestApp(t)
	body := verifyBody("ord_1")
	delete(body, "razorpay_signature")

	w := app.do(t, buyer, http.MethodPost, "/payments/verify", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields: razorpay_signature", decode(t, w)["error"])
}
