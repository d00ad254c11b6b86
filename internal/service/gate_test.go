package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage/memory"
)

func newTestGate(t *testing.T) (*GateService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewGateService(store, zap.NewNop()), store
}

func seedAPIKey(t *testing.T, store *memory.Store, id, value string, limit int) {
	t.Helper()
	err := store.SaveAPIKey(context.Background(), &domain.APIKey{
		ID:                 id,
		Key:                value,
		Name:               "test",
		RateLimitPerMinute: limit,
		IsActive:           true,
		CreatedAt:          time.Now(),
	})
	require.NoError(t, err)
}

func TestGateAuthorize(t *testing.T) {
	ctx := context.Background()

	t.Run("密钥为空被拒绝", func(t *testing.T) {
		gate, _ := newTestGate(t)
		key, err := gate.Authorize(ctx, "")
		assert.ErrorIs(t, err, ErrAPIKeyRequired)
		assert.Nil(t, key)
	})

	t.Run("未知密钥被拒绝", func(t *testing.T) {
		gate, _ := newTestGate(t)
		key, err := gate.Authorize(ctx, "fw_live_nope")
		assert.ErrorIs(t, err, ErrAPIKeyInvalid)
		assert.Nil(t, key)
	})

	t.Run("停用密钥被拒绝", func(t *testing.T) {
		gate, store := newTestGate(t)
		require.NoError(t, store.SaveAPIKey(ctx, &domain.APIKey{
			ID: "k1", Key: "fw_live_revoked", IsActive: false,
		}))
		_, err := gate.Authorize(ctx, "fw_live_revoked")
		assert.ErrorIs(t, err, ErrAPIKeyInvalid)
	})

	t.Run("有效密钥放行并更新使用时间", func(t *testing.T) {
		gate, store := newTestGate(t)
		seedAPIKey(t, store, "k1", "fw_live_ok", 60)

		key, err := gate.Authorize(ctx, "fw_live_ok")
		require.NoError(t, err)
		assert.Equal(t, "k1", key.ID)

		got, err := store.GetAPIKeyByKey(ctx, "fw_live_ok")
		require.NoError(t, err)
		assert.NotNil(t, got.LastUsedAt)
	})

	t.Run("达到配额返回超限错误和密钥", func(t *testing.T) {
		gate, store := newTestGate(t)
		seedAPIKey(t, store, "k1", "fw_live_ok", 2)

		now := time.Now()
		for i := 0; i < 2; i++ {
			require.NoError(t, store.AppendUsageEvent(ctx, &domain.UsageEvent{
				ID: string(rune('a' + i)), APIKeyID: "k1", Endpoint: "search",
				Success: true, CreatedAt: now.Add(-10 * time.Second),
			}))
		}

		key, err := gate.Authorize(ctx, "fw_live_ok")
		require.Error(t, err)
		assert.True(t, IsRateLimitExceeded(err))
		assert.EqualError(t, err, "Rate limit exceeded. Maximum 2 requests per minute.")
		// 超限时仍返回密钥，供审计记录使用真实 ID
		require.NotNil(t, key)
		assert.Equal(t, "k1", key.ID)
	})

	t.Run("窗口外的记录不计入配额", func(t *testing.T) {
		gate, store := newTestGate(t)
		seedAPIKey(t, store, "k1", "fw_live_ok", 1)

		require.NoError(t, store.AppendUsageEvent(ctx, &domain.UsageEvent{
			ID: "old", APIKeyID: "k1", Endpoint: "search",
			Success: true, CreatedAt: time.Now().Add(-2 * time.Minute),
		}))

		_, err := gate.Authorize(ctx, "fw_live_ok")
		assert.NoError(t, err)
	})

	t.Run("配额按密钥隔离", func(t *testing.T) {
		gate, store := newTestGate(t)
		seedAPIKey(t, store, "k1", "fw_live_one", 1)
		seedAPIKey(t, store, "k2", "fw_live_two", 1)

		require.NoError(t, store.AppendUsageEvent(ctx, &domain.UsageEvent{
			ID: "e1", APIKeyID: "k1", Endpoint: "search",
			Success: true, CreatedAt: time.Now(),
		}))

		_, err := gate.Authorize(ctx, "fw_live_one")
		assert.True(t, IsRateLimitExceeded(err))

		_, err = gate.Authorize(ctx, "fw_live_two")
		assert.NoError(t, err)
	})
}

func TestGateLogUsage(t *testing.T) {
	ctx := context.Background()
	gate, store := newTestGate(t)

	gate.LogUsage(ctx, "k1", "search", true)
	gate.LogUsage(ctx, "", "search", false) // 无效密钥的拒绝记录

	count, err := store.CountUsageEventsSince(ctx, "k1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountUsageEventsSince(ctx, "", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGatePurgeUsageEvents(t *testing.T) {
	ctx := context.Background()
	gate, store := newTestGate(t)
	now := time.Now()

	require.NoError(t, store.AppendUsageEvent(ctx, &domain.UsageEvent{
		ID: "old", APIKeyID: "k1", CreatedAt: now.Add(-25 * time.Hour),
	}))
	require.NoError(t, store.AppendUsageEvent(ctx, &domain.UsageEvent{
		ID: "fresh", APIKeyID: "k1", CreatedAt: now.Add(-time.Minute),
	}))

	deleted, err := gate.PurgeUsageEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
