package controllers

import (
	"net/http"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationController exposes the delivery audit trail of order
// notifications to admins.
type NotificationController struct {
	logs   repository.NotificationRepository
	logger *zap.Logger
}

// NewNotificationController creates a NotificationController. logs may be nil
// when the order store does not keep notification logs.
func NewNotificationController(logs repository.NotificationRepository, logger *zap.Logger) *NotificationController {
	return &NotificationController{logs: logs, logger: logger}
}

// GetOrderNotifications handles GET /orders/:id/notifications
func (nc *NotificationController) GetOrderNotifications(ctx *gin.Context) {
	orderID := ctx.Param("id")
	if nc.logs == nil {
		ctx.JSON(http.StatusOK, gin.H{"orderId": orderID, "notifications": []models.NotificationLog{}})
		return
	}

	logs, err := nc.logs.GetLogsByOrderID(ctx.Request.Context(), orderID)
	if err != nil {
		nc.logger.Error("failed to get notification logs",
			zap.String("order_id", orderID),
			zap.Error(err))
		respondError(ctx, services.NewServiceError(services.KindServer, "Failed to fetch notifications"))
		return
	}
	if logs == nil {
		logs = []models.NotificationLog{}
	}

	ctx.JSON(http.StatusOK, gin.H{"orderId": orderID, "notifications": logs})
}
