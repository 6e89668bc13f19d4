package custody

import "time"

// Assignment 是 assignments 表的 GORM 模型：某保管人当前对某资产
// 负责，且资产位于某位置。不变量：每个资产同一时刻最多一条 active
// 记录。Locked=true 表示该资产正处于未了结的借用流程中，禁止改派
// 或解除。
type Assignment struct {
	ID          string    `gorm:"primaryKey;size:36"`
	AssetID     string    `gorm:"index;size:36;not null"`
	CustodianID string    `gorm:"index;size:36;not null"`
	LocationID  string    `gorm:"index;size:36"`
	AssignedAt  time.Time `gorm:"not null"`
	Active      bool      `gorm:"index;not null;default:false"`
	Locked      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// 移动类型。
const (
	MovementAssign   = "assign"
	MovementUnassign = "unassign"
)

// MovementRecord 资产移动历史（只追加），记录每次保管权变动的
// 前后保管人/位置与操作人。
type MovementRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	AssetID      string `gorm:"index;size:36;not null"`
	AssignmentID string `gorm:"index;size:36"`
	Kind         string `gorm:"type:varchar(16);not null"`

	FromCustodianID string `gorm:"size:36"`
	ToCustodianID   string `gorm:"size:36"`
	FromLocationID  string `gorm:"size:36"`
	ToLocationID    string `gorm:"size:36"`

	ActorID string    `gorm:"size:36;not null"`
	MovedAt time.Time `gorm:"index;not null"`
}

func (MovementRecord) TableName() string { return "asset_movements" }
