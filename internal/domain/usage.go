package domain

import "time"

// UsageEvent API调用审计记录
//
// 仅追加、从不修改：每次经过网关的调用（无论放行与否）写入一条，
// 滚动限流窗口完全基于该日志重建。无效密钥的拒绝同样记录，
// APIKeyID 为空串以保留审计可见性。
type UsageEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	APIKeyID  string    `json:"apiKeyId" gorm:"type:varchar(36);index:idx_usage_key_time"`
	Endpoint  string    `json:"endpoint" gorm:"type:varchar(100)"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_usage_key_time"`
}
