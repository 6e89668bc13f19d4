package asset

import "time"

// Status 资产状态枚举（持久化为字符串，记录在状态历史表）。
type Status string

const (
	StatusAvailable        Status = "available"         // 可用
	StatusUnderMaintenance Status = "under_maintenance" // 维修中
	StatusDamaged          Status = "damaged"           // 损坏
	StatusRetired          Status = "retired"           // 报废下线
)

// ValidStatus 判断是否为已知状态值。
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusUnderMaintenance, StatusDamaged, StatusRetired:
		return true
	}
	return false
}

// Asset 是 assets 表的 GORM 模型。登记后描述性字段可改，记录本身永不删除。
// CustodianID/LocationID 是冗余指针，由保管台账在分配时维护。
type Asset struct {
	ID          string `gorm:"primaryKey;size:36"`
	Code        string `gorm:"uniqueIndex;size:64;not null"` // 资产编号（盘点用）
	Description string `gorm:"size:255;not null"`
	BrandID     string `gorm:"index;size:36"`
	Model       string `gorm:"size:64"`
	Serial      string `gorm:"size:64"`

	// 采购信息（金额单位：分）
	AcquisitionCostCents int64      `gorm:"not null;default:0"`
	AcquiredAt           *time.Time // 采购日期
	ExpectedLifeYears    int        `gorm:"not null;default:0"`

	// 当前保管指针（台账维护，资产登记处只读）
	CustodianID string `gorm:"index;size:36"`
	LocationID  string `gorm:"index;size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// StatusRecord 是 asset_status_records 表的 GORM 模型，只追加不修改。
// 资产的“当前状态”即该资产最新一条记录。
type StatusRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	AssetID    string    `gorm:"index;size:36;not null"`
	Status     Status    `gorm:"type:varchar(32);not null"`
	RecordedAt time.Time `gorm:"index;not null"`
}

func (StatusRecord) TableName() string { return "asset_status_records" }
