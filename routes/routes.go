package routes

import (
	"net/http"

	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up the health check, order and payment routes.
func RegisterRoutes(r *gin.Engine, oc *controllers.OrderController, pc *controllers.PaymentController, jwtSecret []byte) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "checkout-service"})
	})

	auth := middleware.AuthMiddleware(jwtSecret)

	orders := r.Group("/orders")
	orders.Use(auth)
	orders.POST("", oc.CreateOrder)
	orders.GET("/my", oc.GetMyOrders)
	orders.GET("/:id", oc.GetOrder)
	orders.PATCH("/:id/cancel", oc.CancelOrder)

	// Admin only
	orders.GET("", middleware.AdminOnly(), oc.ListAllOrders)
	orders.PATCH("/:id", middleware.AdminOnly(), oc.UpdateOrder)
	orders.DELETE("/:id", middleware.AdminOnly(), oc.DeleteOrder)

	payments := r.Group("/payments")
	payments.Use(auth)
	payments.POST("/create", pc.CreatePayment)
	payments.POST("/verify", pc.VerifyPayment)
}

// RegisterNotificationRoutes exposes the notification audit trail to admins.
func RegisterNotificationRoutes(r *gin.Engine, nc *controllers.NotificationController, jwtSecret []byte) {
	r.GET("/orders/:id/notifications", middleware.AuthMiddleware(jwtSecret), middleware.AdminOnly(), nc.GetOrderNotifications)
}
