package controllers

import (
	"net/http"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// OrderController handles HTTP requests for orders.
type OrderController struct {
	orderService services.OrderService
}

// NewOrderController creates a new OrderController.
func NewOrderController(svc services.OrderService) *OrderController {
	return &OrderController{orderService: svc}
}

// CreateOrder handles POST /orders
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	order, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), middleware.GetCurrentUser(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Order created successfully", "order": order})
}

// GetMyOrders handles GET /orders/my
func (oc *OrderController) GetMyOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	orders, total, svcErr := oc.orderService.GetMyOrders(ctx.Request.Context(), middleware.GetCurrentUser(ctx), page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"meta": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), middleware.GetCurrentUser(ctx), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder handles PATCH /orders/:id/cancel
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	var req models.CancelOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	order, svcErr := oc.orderService.CancelOrder(ctx.Request.Context(), middleware.GetCurrentUser(ctx), ctx.Param("id"), req.CancellationReason)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}

// ListAllOrders handles GET /orders (admin)
func (oc *OrderController) ListAllOrders(ctx *gin.Context) {
	orders, svcErr := oc.orderService.ListAllOrders(ctx.Request.Context(), middleware.GetCurrentUser(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders})
}

// UpdateOrder handles PATCH /orders/:id (admin)
func (oc *OrderController) UpdateOrder(ctx *gin.Context) {
	var req models.UpdateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	order, svcErr := oc.orderService.UpdateOrder(ctx.Request.Context(), middleware.GetCurrentUser(ctx), ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order updated successfully", "order": order})
}

// DeleteOrder handles DELETE /orders/:id (admin)
func (oc *OrderController) DeleteOrder(ctx *gin.Context) {
	if svcErr := oc.orderService.DeleteOrder(ctx.Request.Context(), middleware.GetCurrentUser(ctx), ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}
