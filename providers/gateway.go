package providers

import (
	"context"
	"errors"
	"math"

	"checkout-service/models"
)

// ErrGateway wraps every failure of the upstream payment provider.
var ErrGateway = errors.New("payment gateway error")

// PaymentGateway defines the operations the checkout flow needs from a
// payment provider.
type PaymentGateway interface {
	// CreateIntent mints a provider-side payment order for amount (major units).
	CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*models.PaymentIntent, error)

	// VerifyCallback checks the signature the provider handed to the client
	// after a completed payment.
	VerifyCallback(providerOrderID, providerPaymentID, signature string) bool
}

// ToMinorUnits converts a major-unit amount to the provider's smallest
// currency unit, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
