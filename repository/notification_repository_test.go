package repository_test

import (
	"context"
	"testing"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_SaveAndList(t *testing.T) {
	repo := repository.NewNotificationRepository(setupSQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveLog(ctx, &models.NotificationLog{
		OrderID:   "ord_1",
		Recipient: "buyer@example.com",
		Type:      models.NotificationPaymentConfirmed,
		Channel:   models.ChannelEmail,
		Status:    models.NotificationSent,
	}))
	require.NoError(t, repo.SaveLog(ctx, &models.NotificationLog{
		OrderID: "ord_2",
		Status:  models.NotificationFailed,
	}))

	logs, err := repo.GetLogsByOrderID(ctx, "ord_1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.NotificationSent, logs[0].Status)
	assert.NotZero(t, logs[0].ID)
}
