package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Email    string           `json:"email" binding:"required,email"`
	Name     string           `json:"name" binding:"required"`
	OrderID  string           `json:"orderId" binding:"required"`
	Phone    string           `json:"phone" binding:"required"`
	Address  *Address         `json:"address" binding:"required"`
	Amount   float64          `json:"amount" binding:"required"`
	Products []ProductRequest `json:"products" binding:"required"`
}

// ProductRequest is one line item of a CreateOrderRequest.
type ProductRequest struct {
	ProductID string  `json:"productId"`
	SKU       string  `json:"sku"`
	Image     string  `json:"image"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
}

// Validate checks required fields and line-item identity.
func (r *CreateOrderRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.OrderID) == "" {
		missing = append(missing, "orderId")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if r.Address == nil {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := validate.Var(r.Email, "email"); err != nil {
		return errors.New("email must be a valid email address")
	}
	// orderId ends up in mail headers and URLs
	if strings.ContainsFunc(r.OrderID, unicode.IsControl) {
		return errors.New("orderId must not contain control characters")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than zero")
	}
	if len(r.Products) == 0 {
		return errors.New("at least one product is required")
	}
	for i, p := range r.Products {
		if strings.TrimSpace(p.ProductID) == "" || strings.TrimSpace(p.Size) == "" || strings.TrimSpace(p.Color) == "" {
			return fmt.Errorf("product %d is missing productId, size or color", i)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("product %d must have a positive quantity", i)
		}
	}
	return nil
}

// ToOrder builds the order snapshot for this request.
func (r *CreateOrderRequest) ToOrder(userID *string) *Order {
	products := make([]OrderProduct, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, OrderProduct{
			ProductID: p.ProductID,
			SKU:       p.SKU,
			Image:     p.Image,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  p.Quantity,
			Size:      p.Size,
			Color:     p.Color,
		})
	}
	var addr Address
	if r.Address != nil {
		addr = *r.Address
	}
	return &Order{
		OrderID:        strings.TrimSpace(r.OrderID),
		UserID:         userID,
		Email:          r.Email,
		Name:           r.Name,
		Phone:          r.Phone,
		Products:       products,
		Address:        addr,
		Amount:         r.Amount,
		Status:         PaymentInitiated,
		DeliveryStatus: DeliveryUnshipped,
	}
}

// UpdateOrderRequest is the admin patch body of PATCH /orders/:id.
type UpdateOrderRequest struct {
	Status             *string `json:"status"`
	DeliveryStatus     *string `json:"deliveryStatus"`
	ShippingProvider   *string `json:"shippingProvider"`
	TrackingID         *string `json:"trackingId"`
	CancellationReason *string `json:"cancellationReason"`
}

// ToPatch converts the request into an OrderPatch, rejecting unknown enum values.
func (r *UpdateOrderRequest) ToPatch() (OrderPatch, error) {
	var patch OrderPatch
	if r.Status != nil {
		s := PaymentStatus(*r.Status)
		if !s.Valid() {
			return patch, fmt.Errorf("invalid status %q", *r.Status)
		}
		patch.Status = &s
	}
	if r.DeliveryStatus != nil {
		d := DeliveryStatus(*r.DeliveryStatus)
		if !d.Valid() {
			return patch, fmt.Errorf("invalid deliveryStatus %q", *r.DeliveryStatus)
		}
		patch.DeliveryStatus = &d
	}
	patch.ShippingProvider = r.ShippingProvider
	patch.TrackingID = r.TrackingID
	patch.CancellationReason = r.CancellationReason
	if patch.Empty() {
		return patch, errors.New("no fields to update")
	}
	return patch, nil
}

// CancelOrderRequest is the body of PATCH /orders/:id/cancel.
type CancelOrderRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

// CreatePaymentRequest is the body of POST /payments/create.
type CreatePaymentRequest struct {
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt" binding:"required"`
}

// Validate checks the payment intent request.
func (r *CreatePaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than zero")
	}
	if strings.TrimSpace(r.Receipt) == "" {
		return errors.New("receipt is required")
	}
	return nil
}

// VerifyPaymentRequest carries the provider callback values forwarded by the client.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	Receipt           string `json:"receipt" binding:"required"`
}

// Validate checks that all callback fields are present.
func (r *VerifyPaymentRequest) Validate() error {
	if r.RazorpayOrderID == "" || r.RazorpayPaymentID == "" || r.RazorpaySignature == "" || r.Receipt == "" {
		return errors.New("razorpay_order_id, razorpay_payment_id, razorpay_signature and receipt are required")
	}
	return nil
}
