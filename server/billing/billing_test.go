package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestVerifyReceipt(t *testing.T) {
	token, err := SignReceipt(testSecret, &Receipt{
		UserID:    "user-1",
		PlanID:    "pro-monthly",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	svc := NewJWTService(testSecret, false)
	receipt, err := svc.VerifyReceipt(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", receipt.UserID)
	require.Equal(t, "pro-monthly", receipt.PlanID)
	require.True(t, svc.IsEntitlementActive(context.Background(), token))
}

func TestVerifyReceiptExpired(t *testing.T) {
	token, err := SignReceipt(testSecret, &Receipt{
		UserID:    "user-1",
		PlanID:    "pro-monthly",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	svc := NewJWTService(testSecret, false)
	_, err = svc.VerifyReceipt(token)
	require.Error(t, err)
	require.False(t, svc.IsEntitlementActive(context.Background(), token))
}

func TestVerifyReceiptWrongSecret(t *testing.T) {
	token, err := SignReceipt("other-secret", &Receipt{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	svc := NewJWTService(testSecret, false)
	_, err = svc.VerifyReceipt(token)
	require.Error(t, err)
}

func TestEmptyTokenPolicy(t *testing.T) {
	ctx := context.Background()
	require.False(t, NewJWTService(testSecret, false).IsEntitlementActive(ctx, ""))
	require.True(t, NewJWTService(testSecret, true).IsEntitlementActive(ctx, ""))
}
