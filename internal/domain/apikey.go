package domain

import "time"

// APIKey API密钥实体
//
// 由后台管理界面创建与停用；本引擎只读取密钥并更新 LastUsedAt，
// 从不删除。
type APIKey struct {
	ID                 string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID             string     `json:"userId" gorm:"type:varchar(36);index;not null"`
	Key                string     `json:"key" gorm:"column:api_key;type:varchar(255);uniqueIndex;not null"` // 密钥明文
	Name               string     `json:"name" gorm:"type:varchar(100)"`                                    // 密钥名称/描述
	RateLimitPerMinute int        `json:"rateLimitPerMinute" gorm:"not null;default:60"`                    // 每分钟滚动窗口限额，必须 > 0
	IsActive           bool       `json:"isActive"`                                                         // 是否激活
	CreatedAt          time.Time  `json:"createdAt"`
	LastUsedAt         *time.Time `json:"lastUsedAt,omitempty"` // 最后使用时间
}
