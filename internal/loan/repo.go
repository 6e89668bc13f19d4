package loan

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, req *Request) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(req).Error
}

func (r *Repo) Update(ctx context.Context, req *Request) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(req).Error
}

// FindByID 取申请本体（不带关联）。
func (r *Repo) FindByID(ctx context.Context, id string) (*Request, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var req Request
	if err := db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindFull 取申请及明细、签字记录。
func (r *Repo) FindFull(ctx context.Context, id string) (*Request, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var req Request
	err := db.Preload("Details").Preload("Signatures").
		Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repo) CreateDetail(ctx context.Context, d *RequestDetail) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(d).Error
}

// DetailsByRequest 某申请的全部明细。
func (r *Repo) DetailsByRequest(ctx context.Context, requestID string) ([]RequestDetail, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var details []RequestDetail
	if err := db.Where("request_id = ?", requestID).Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

// CountByAssignment 统计引用某分配的明细数（供台账做历史保全检查）。
func (r *Repo) CountByAssignment(ctx context.Context, assignmentID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var n int64
	err := db.Model(&RequestDetail{}).
		Where("assignment_id = ?", assignmentID).
		Count(&n).Error
	return n, err
}

func (r *Repo) CreateSignature(ctx context.Context, sig *Signature) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(sig).Error
}

// FindSignature 取某申请某环节的签字记录（无则 ErrRecordNotFound）。
func (r *Repo) FindSignature(ctx context.Context, requestID string, stage Stage) (*Signature, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var sig Signature
	err := db.Where("request_id = ? AND stage = ?", requestID, stage).First(&sig).Error
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// List 支持按申请人/状态过滤 + 分页。
func (r *Repo) List(ctx context.Context, requesterID string, status Status, offset, limit int) ([]Request, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Request{})
	if requesterID != "" {
		q = q.Where("requester_id = ?", requesterID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []Request
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// ListPendingForCustodian 保管人的待办：处于 pending 且至少有一条
// 明细指向该保管人的分配。
func (r *Repo) ListPendingForCustodian(ctx context.Context, custodianID string, offset, limit int) ([]Request, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	join := func() *gorm.DB {
		return db.Model(&Request{}).
			Joins("JOIN request_details ON request_details.request_id = requests.id").
			Joins("JOIN assignments ON assignments.id = request_details.assignment_id").
			Where("requests.status = ? AND assignments.custodian_id = ?", StatusPending, custodianID)
	}

	var total int64
	if err := join().Distinct("requests.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []Request
	err := join().Distinct("requests.*").
		Order("requests.created_at ASC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}
