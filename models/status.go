package models

// PaymentStatus is the payment lifecycle axis of an order.
type PaymentStatus string

const (
	PaymentInitiated  PaymentStatus = "Initiated"
	PaymentProcessing PaymentStatus = "Processing"
	PaymentPaid       PaymentStatus = "Paid"
	PaymentFailed     PaymentStatus = "Failed"
	PaymentCancelled  PaymentStatus = "Cancelled"
)

// DeliveryStatus is the fulfillment lifecycle axis of an order. It moves
// independently of PaymentStatus.
type DeliveryStatus string

const (
	DeliveryUnshipped      DeliveryStatus = "unshipped"
	DeliveryShipped        DeliveryStatus = "shipped"
	DeliveryOutForDelivery DeliveryStatus = "out for delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryReturned       DeliveryStatus = "returned"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentInitiated:  {PaymentProcessing, PaymentPaid, PaymentFailed, PaymentCancelled},
	PaymentProcessing: {PaymentPaid, PaymentFailed, PaymentCancelled},
	PaymentPaid:       {PaymentCancelled},
	PaymentFailed:     {},
	PaymentCancelled:  {},
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryUnshipped:      {DeliveryShipped, DeliveryOutForDelivery, DeliveryDelivered, DeliveryReturned},
	DeliveryShipped:        {DeliveryOutForDelivery, DeliveryDelivered, DeliveryReturned},
	DeliveryOutForDelivery: {DeliveryDelivered, DeliveryReturned},
	DeliveryDelivered:      {},
	DeliveryReturned:       {},
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// Terminal reports whether no further payment transition is possible.
func (s PaymentStatus) Terminal() bool {
	return len(paymentTransitions[s]) == 0
}

// CanTransitionTo reports whether the payment axis may move from s to next.
// Writing the current value again is always allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

// Cancelable reports whether an order in delivery state s may still be cancelled.
func (s DeliveryStatus) Cancelable() bool {
	switch s {
	case DeliveryShipped, DeliveryOutForDelivery, DeliveryDelivered:
		return false
	}
	return true
}

// CanTransitionTo reports whether the delivery axis may move from s to next.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NonCancelableDeliveryStatuses lists the delivery states that block cancellation.
func NonCancelableDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryShipped, DeliveryOutForDelivery, DeliveryDelivered}
}

// PayableStatuses lists the payment states a verified payment may move out of.
func PayableStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentInitiated, PaymentProcessing}
}
