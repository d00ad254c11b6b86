package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportValidator_ValidateForSave(t *testing.T) {
	validator := NewReportValidator()

	t.Run("完整记录通过校验", func(t *testing.T) {
		report := &Report{
			Name:       "สมชาย",
			RawMessage: "น้ำท่วมบ้าน ต้องการความช่วยเหลือ",
		}
		assert.NoError(t, validator.ValidateForSave(report))
	})

	t.Run("缺少姓名校验失败", func(t *testing.T) {
		report := &Report{
			Name:       "   ",
			RawMessage: "ข้อความ",
		}
		assert.ErrorIs(t, validator.ValidateForSave(report), ErrReportNameRequired)
	})

	t.Run("缺少原始消息校验失败", func(t *testing.T) {
		report := &Report{
			Name:       "สมชาย",
			RawMessage: "",
		}
		assert.ErrorIs(t, validator.ValidateForSave(report), ErrRawMessageRequired)
	})
}

func TestReportValidator_ValidateCategories(t *testing.T) {
	validator := NewReportValidator()

	t.Run("已知类别通过校验", func(t *testing.T) {
		assert.NoError(t, validator.ValidateCategories([]string{"water", "food", "trapped"}))
	})

	t.Run("空类别列表通过校验", func(t *testing.T) {
		assert.NoError(t, validator.ValidateCategories(nil))
	})

	t.Run("未知类别校验失败", func(t *testing.T) {
		err := validator.ValidateCategories([]string{"water", "helicopter"})
		assert.ErrorIs(t, err, ErrUnknownHelpCategory)
	})
}

func TestValidateEmbedding(t *testing.T) {
	t.Run("合法向量通过校验", func(t *testing.T) {
		assert.NoError(t, ValidateEmbedding([]float32{0.1, -0.2, 0.3}))
	})

	t.Run("空向量校验失败", func(t *testing.T) {
		assert.ErrorIs(t, ValidateEmbedding(nil), ErrEmbeddingEmpty)
		assert.ErrorIs(t, ValidateEmbedding([]float32{}), ErrEmbeddingEmpty)
	})

	t.Run("包含NaN的向量校验失败", func(t *testing.T) {
		err := ValidateEmbedding([]float32{0.1, float32(math.NaN())})
		assert.ErrorIs(t, err, ErrEmbeddingNotFinite)
	})

	t.Run("包含Inf的向量校验失败", func(t *testing.T) {
		err := ValidateEmbedding([]float32{float32(math.Inf(1)), 0.2})
		assert.ErrorIs(t, err, ErrEmbeddingNotFinite)
	})
}
