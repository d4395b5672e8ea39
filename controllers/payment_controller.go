package controllers

import (
	"net/http"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// PaymentController handles payment intent creation and callback verification.
type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(svc services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: svc}
}

// CreatePayment handles POST /payments/create
func (pc *PaymentController) CreatePayment(ctx *gin.Context) {
	var req models.CreatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	intent, svcErr := pc.paymentService.CreatePaymentIntent(ctx.Request.Context(), middleware.GetCurrentUser(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, intent)
}

// VerifyPayment handles POST /payments/verify
func (pc *PaymentController) VerifyPayment(ctx *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	order, svcErr := pc.paymentService.VerifyPayment(ctx.Request.Context(), middleware.GetCurrentUser(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Payment verified successfully", "order": order})
}
