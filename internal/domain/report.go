package domain

import "time"

// 紧急程度取值范围（1 仅预警 ~ 5 危及生命）
const (
	UrgencyLevelMin = 1
	UrgencyLevelMax = 5
)

// 报告处理状态
const (
	ReportStatusPending    = "pending"     // 待处理（新建记录默认值）
	ReportStatusInProgress = "in_progress" // 救援进行中
	ReportStatusResolved   = "resolved"    // 已完成
	ReportStatusCancelled  = "cancelled"   // 已取消（误报或重复）
)

// Report 灾情上报记录
//
// 由外部提报渠道（LINE 机器人、第三方集成等）写入，结构化字段由
// 上游抽取流程生成，本引擎只负责读写与匹配。
type Report struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string   `json:"name" gorm:"type:varchar(255);index"`
	Lastname     string   `json:"lastname" gorm:"type:varchar(255)"`
	ReporterName string   `json:"reporter_name" gorm:"type:varchar(255)"`
	Phone        Strings  `json:"phone" gorm:"type:json"` // 一条记录可能包含多个联系电话
	Address      string   `json:"address" gorm:"type:text"`
	MapLink      *string  `json:"map_link,omitempty" gorm:"type:text"`
	LocationLat  *float64 `json:"location_lat,omitempty"`
	LocationLong *float64 `json:"location_long,omitempty"`

	// 受困人数统计
	NumberOfAdults   int `json:"number_of_adults"`
	NumberOfChildren int `json:"number_of_children"`
	NumberOfInfants  int `json:"number_of_infants"`
	NumberOfSeniors  int `json:"number_of_seniors"`
	NumberOfPatients int `json:"number_of_patients"`

	HealthCondition string  `json:"health_condition" gorm:"type:text"`
	HelpNeeded      string  `json:"help_needed" gorm:"type:text"`
	HelpCategories  Strings `json:"help_categories" gorm:"type:json"`
	AdditionalInfo  string  `json:"additional_info" gorm:"type:text"`
	UrgencyLevel    int     `json:"urgency_level" gorm:"index"` // 紧急程度 1-5
	Status          string  `json:"status" gorm:"type:varchar(50)"`
	RawMessage      string  `json:"raw_message" gorm:"type:text"`

	// Embedding 语义向量，由外部模型离线生成；为空表示该记录
	// 尚不可参与相似度检索
	Embedding Vector `json:"embedding,omitempty" gorm:"type:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEmbedding 该记录是否已具备可用于相似度检索的向量
func (r *Report) HasEmbedding() bool {
	return len(r.Embedding) > 0
}
