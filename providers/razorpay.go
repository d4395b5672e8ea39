package providers

import (
	"context"
	"fmt"

	"checkout-service/models"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// orderCreator is the part of the Razorpay SDK order resource the gateway uses.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway implements PaymentGateway using the Razorpay orders API.
type RazorpayGateway struct {
	orders    orderCreator
	keySecret string
	logger    *zap.Logger
}

// NewRazorpayGateway creates a gateway authenticated with the given key pair.
func NewRazorpayGateway(keyID, keySecret string, logger *zap.Logger) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{orders: client.Order, keySecret: keySecret, logger: logger}
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*models.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	minor := ToMinorUnits(amount)
	body, err := g.orders.Create(map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		g.logger.Error("Razorpay order creation failed",
			zap.String("receipt", receipt),
			zap.Int64("amount", minor),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response has no order id", ErrGateway)
	}

	intent := &models.PaymentIntent{
		ProviderOrderID: id,
		Amount:          minor,
		Currency:        currency,
		Receipt:         receipt,
	}
	if v, ok := body["amount"].(float64); ok {
		intent.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		intent.Currency = v
	}
	if v, ok := body["receipt"].(string); ok && v != "" {
		intent.Receipt = v
	}

	g.logger.Info("Razorpay order created",
		zap.String("razorpay_order_id", id),
		zap.String("receipt", intent.Receipt))
	return intent, nil
}

func (g *RazorpayGateway) VerifyCallback(providerOrderID, providerPaymentID, signature string) bool {
	return VerifySignature(providerOrderID, providerPaymentID, signature, g.keySecret)
}
