package loan

import "time"

// Request 借用申请的 GORM 模型。只通过状态机流转修改，
// 取消与拒绝都是状态而非删除，记录永不物理删除。
type Request struct {
	ID          string `gorm:"primaryKey;size:36"`
	RequesterID string `gorm:"index;size:36;not null"`

	DestinationLocationID string `gorm:"size:36;not null"`
	Purpose               string `gorm:"size:255"`
	Observations          string `gorm:"type:text"`

	LoanStart time.Time `gorm:"not null"`
	LoanEnd   time.Time `gorm:"not null"`

	Status Status `gorm:"type:varchar(24);index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// 各阶段时间（状态机维护）
	CustodianSignedAt *time.Time
	ApprovedAt        *time.Time
	ExitAt            *time.Time
	ReturnedAt        *time.Time
	RejectedAt        *time.Time
	CancelledAt       *time.Time

	Details    []RequestDetail `gorm:"foreignKey:RequestID"`
	Signatures []Signature     `gorm:"foreignKey:RequestID"`
}

// RequestDetail 借用明细：在创建时刻快照该行指向哪条分配
// （也就确定了保管人）。创建后不可变，永久留作审计依据。
type RequestDetail struct {
	ID           string    `gorm:"primaryKey;size:36"`
	RequestID    string    `gorm:"index;size:36;not null"`
	AssignmentID string    `gorm:"index;size:36;not null"`
	Quantity     int       `gorm:"not null;default:1"`
	Description  string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (RequestDetail) TableName() string { return "request_details" }

// Signature 签字记录（只追加）。(request_id, stage) 的唯一索引是
// 重复签字的最终裁决：并发下两个签字者同时通过预读检查时，
// 由该约束兜底。
type Signature struct {
	ID          string    `gorm:"primaryKey;size:36"`
	RequestID   string    `gorm:"uniqueIndex:idx_request_stage;size:36;not null"`
	Stage       Stage     `gorm:"uniqueIndex:idx_request_stage;type:varchar(16);not null"`
	SignerID    string    `gorm:"index;size:36;not null"`
	Approved    bool      `gorm:"not null"`
	Observation string    `gorm:"size:255"`
	SignedAt    time.Time `gorm:"not null"`
}
