package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage/memory"
)

// fakeProvider 测试用向量服务，返回固定向量或固定错误
type fakeProvider struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeProvider) Dimension() int { return len(f.vector) }

func seedReport(t *testing.T, store *memory.Store, id, name string, urgency int, embedding []float32, updatedAt time.Time) {
	t.Helper()
	err := store.SaveReport(context.Background(), &domain.Report{
		ID:           id,
		Name:         name,
		UrgencyLevel: urgency,
		Status:       domain.ReportStatusPending,
		RawMessage:   "raw",
		Embedding:    domain.Vector(embedding),
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	})
	require.NoError(t, err)
}

func TestSearchTiers(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	t.Run("关键词为空返回错误", func(t *testing.T) {
		svc := NewSearchService(memory.NewStore(), nil, zap.NewNop(), SearchOptions{})
		_, err := svc.Search(ctx, SearchInput{Query: "   "})
		assert.ErrorIs(t, err, ErrQueryRequired)
	})

	t.Run("文本层命中返回exact", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "สมชาย น้ำท่วม", 3, nil, base)
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		result, err := svc.Search(ctx, SearchInput{Query: "น้ำท่วม"})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierExact, result.Tier)
		require.Len(t, result.Reports, 1)
		// 文本层命中时不触发向量化
		assert.Zero(t, provider.calls)
	})

	t.Run("文本层未命中降级语义层", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "Malee", 3, []float32{1, 0}, base)
		seedReport(t, store, "r2", "Anan", 3, []float32{0.9, 0.1}, base)
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		result, err := svc.Search(ctx, SearchInput{Query: "ไม่มีใครชื่อนี้"})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, result.Tier)
		require.Len(t, result.Reports, 2)
		// 按相似度降序排列
		assert.Equal(t, "r1", result.Reports[0].ID)
		assert.Equal(t, "r2", result.Reports[1].ID)
	})

	t.Run("未配置向量服务返回none", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSearchService(store, nil, zap.NewNop(), SearchOptions{})

		result, err := svc.Search(ctx, SearchInput{Query: "anything"})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierNone, result.Tier)
		assert.Empty(t, result.Reports)
		assert.NotNil(t, result.Reports)
	})

	t.Run("语义层无命中仍返回semantic", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "Malee", 3, []float32{0, 1}, base)
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{SemanticThreshold: 0.5})

		result, err := svc.Search(ctx, SearchInput{Query: "nothing similar"})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, result.Tier)
		assert.Empty(t, result.Reports)
	})

	t.Run("向量化失败返回上游错误", func(t *testing.T) {
		store := memory.NewStore()
		provider := &fakeProvider{err: errors.New("quota exhausted")}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		_, err := svc.Search(ctx, SearchInput{Query: "whatever"})
		require.Error(t, err)
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, "embedding", upstream.Upstream)
	})

	t.Run("紧急级别过滤应用于两层", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "Malee", 5, []float32{1, 0}, base)
		seedReport(t, store, "r2", "Malee", 3, []float32{1, 0}, base.Add(time.Hour))
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		urgency := 5
		result, err := svc.Search(ctx, SearchInput{Query: "malee", UrgencyFilter: &urgency})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierExact, result.Tier)
		require.Len(t, result.Reports, 1)
		assert.Equal(t, "r1", result.Reports[0].ID)

		result, err = svc.Search(ctx, SearchInput{Query: "ไม่พบ", UrgencyFilter: &urgency})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, result.Tier)
		require.Len(t, result.Reports, 1)
		assert.Equal(t, "r1", result.Reports[0].ID)
	})

	t.Run("强制语义检索跳过文本层", func(t *testing.T) {
		store := memory.NewStore()
		// 文本层本可命中，但被跳过
		seedReport(t, store, "r1", "flood report", 3, []float32{1, 0}, base)
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		result, err := svc.Search(ctx, SearchInput{Query: "flood", ForceSemantic: true})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, result.Tier)
		require.Len(t, result.Reports, 1)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("超出范围的紧急级别不做钳制", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "Malee", 5, []float32{1, 0}, base)
		seedReport(t, store, "r2", "Malee", 3, []float32{1, 0}, base)
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		// 文本层按原值过滤得到零行，随后语义层的后置过滤同样按原值排除全部候选
		urgency := 7
		result, err := svc.Search(ctx, SearchInput{Query: "malee", UrgencyFilter: &urgency})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, result.Tier)
		assert.Empty(t, result.Reports)
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("相同输入重复检索结果一致", func(t *testing.T) {
		store := memory.NewStore()
		seedReport(t, store, "r1", "flood zone A", 3, []float32{1, 0}, base)
		seedReport(t, store, "r2", "flood zone B", 3, []float32{0.9, 0.1}, base.Add(time.Hour))
		seedReport(t, store, "r3", "flood zone C", 3, []float32{0.8, 0.2}, base.Add(2*time.Hour))
		provider := &fakeProvider{vector: []float32{1, 0}}
		svc := NewSearchService(store, provider, zap.NewNop(), SearchOptions{})

		first, err := svc.Search(ctx, SearchInput{Query: "flood zone"})
		require.NoError(t, err)
		second, err := svc.Search(ctx, SearchInput{Query: "flood zone"})
		require.NoError(t, err)
		assert.Equal(t, first.Tier, second.Tier)
		assert.Equal(t, first.Reports, second.Reports)

		// 语义层同样幂等
		first, err = svc.Search(ctx, SearchInput{Query: "ไม่พบ"})
		require.NoError(t, err)
		second, err = svc.Search(ctx, SearchInput{Query: "ไม่พบ"})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchTierSemantic, second.Tier)
		assert.Equal(t, first.Reports, second.Reports)
	})

	t.Run("条数上限在文本层生效", func(t *testing.T) {
		store := memory.NewStore()
		for i := 0; i < 5; i++ {
			seedReport(t, store, string(rune('a'+i)), "flood", 3, nil, base.Add(time.Duration(i)*time.Hour))
		}
		svc := NewSearchService(store, nil, zap.NewNop(), SearchOptions{})

		result, err := svc.Search(ctx, SearchInput{Query: "flood", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, result.Reports, 2)
	})
}
