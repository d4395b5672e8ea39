package controllers

import (
	"errors"
	"strconv"
	"strings"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError renders a ServiceError as {"error", "code"}.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "code": svcErr.Kind})
}

// respondBindError reports a body that failed to decode or failed its
// binding tags as a ValidationError naming the offending fields.
func respondBindError(ctx *gin.Context, err error) {
	respondError(ctx, services.NewServiceError(services.KindValidation, bindErrorMessage(err)))
}

func bindErrorMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body"
	}

	var missing, invalid []string
	for _, fe := range ve {
		name := jsonFieldName(fe.Field())
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// jsonFieldName turns a Go field name into its camelCase JSON key.
func jsonFieldName(field string) string {
	switch field {
	case "OrderID":
		return "orderId"
	case "RazorpayOrderID":
		return "razorpay_order_id"
	case "RazorpayPaymentID":
		return "razorpay_payment_id"
	case "RazorpaySignature":
		return "razorpay_signature"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
