package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a persisted checkout. Line items, address and amount are snapshots
// taken when the order was placed.
type Order struct {
	ID                 uuid.UUID      `json:"id" bson:"id" gorm:"type:uuid;primaryKey"`
	OrderID            string         `json:"orderId" bson:"orderId" gorm:"uniqueIndex;not null"`
	UserID             *string        `json:"userId,omitempty" bson:"userId,omitempty" gorm:"index"`
	Email              string         `json:"email" bson:"email" gorm:"not null"`
	Name               string         `json:"name" bson:"name" gorm:"not null"`
	Phone              string         `json:"phone" bson:"phone" gorm:"not null"`
	Products           []OrderProduct `json:"products" bson:"products" gorm:"type:jsonb;serializer:json;not null"`
	Address            Address        `json:"address" bson:"address" gorm:"embedded;embeddedPrefix:address_"`
	Amount             float64        `json:"amount" bson:"amount" gorm:"not null"`
	Status             PaymentStatus  `json:"status" bson:"status" gorm:"type:varchar(20);not null;default:'Initiated'"`
	DeliveryStatus     DeliveryStatus `json:"deliveryStatus" bson:"deliveryStatus" gorm:"type:varchar(20);not null;default:'unshipped'"`
	PaymentInfo        PaymentInfo    `json:"paymentInfo" bson:"paymentInfo" gorm:"embedded;embeddedPrefix:payment_"`
	ShippingProvider   string         `json:"shippingProvider,omitempty" bson:"shippingProvider,omitempty"`
	TrackingID         string         `json:"trackingId,omitempty" bson:"trackingId,omitempty"`
	CancellationReason string         `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CreatedAt          time.Time      `json:"createdAt" bson:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `json:"updatedAt" bson:"updatedAt" gorm:"autoUpdateTime"`
}

// BeforeCreate assigns the surrogate primary key.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	o.EnsureID()
	return nil
}

// EnsureID assigns a surrogate id to an order that has none.
func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
}

// OrderProduct is a line item copied from the catalog at order time.
type OrderProduct struct {
	ProductID string  `json:"productId" bson:"productId"`
	SKU       string  `json:"sku,omitempty" bson:"sku,omitempty"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Size      string  `json:"size" bson:"size"`
	Color     string  `json:"color" bson:"color"`
}

// Address is the shipping address snapshot stored on an order.
type Address struct {
	Name         string `json:"name" bson:"name"`
	Phone        string `json:"phone" bson:"phone"`
	Country      string `json:"country" bson:"country"`
	AddressLine1 string `json:"addressLine1" bson:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty" bson:"addressLine2,omitempty"`
	City         string `json:"city" bson:"city"`
	State        string `json:"state" bson:"state"`
	Pincode      string `json:"pincode" bson:"pincode"`
}

// PaymentInfo holds the provider identifiers of a verified payment.
type PaymentInfo struct {
	ProviderOrderID   string `json:"providerOrderId,omitempty" bson:"providerOrderId,omitempty"`
	ProviderPaymentID string `json:"providerPaymentId,omitempty" bson:"providerPaymentId,omitempty"`
	ProviderSignature string `json:"providerSignature,omitempty" bson:"providerSignature,omitempty"`
}

// OrderPatch is a partial update. Nil fields are left untouched.
type OrderPatch struct {
	Status             *PaymentStatus
	DeliveryStatus     *DeliveryStatus
	ShippingProvider   *string
	TrackingID         *string
	CancellationReason *string
}

// Empty reports whether the patch carries no field at all.
func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.DeliveryStatus == nil && p.ShippingProvider == nil &&
		p.TrackingID == nil && p.CancellationReason == nil
}

// PaymentIntent is the provider-side payment order minted for a checkout.
type PaymentIntent struct {
	ProviderOrderID string `json:"id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
}
