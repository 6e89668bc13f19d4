package custody

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

func (r *Repo) Create(ctx context.Context, a *Assignment) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(a).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Assignment, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Assignment
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindActiveByAsset 取某资产当前的 active 分配（无则 ErrRecordNotFound）。
func (r *Repo) FindActiveByAsset(ctx context.Context, assetID string) (*Assignment, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Assignment
	err := db.Where("asset_id = ? AND active = ?", assetID, true).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeactivateByAsset 兜底清理：把该资产所有 active 分配置为非激活。
func (r *Repo) DeactivateByAsset(ctx context.Context, assetID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Assignment{}).
		Where("asset_id = ? AND active = ?", assetID, true).
		Update("active", false).Error
}

// SetLocked 批量切换锁标志。只有借用编排器在放行/归还环节调用。
func (r *Repo) SetLocked(ctx context.Context, ids []string, locked bool) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	return db.Model(&Assignment{}).
		Where("id IN ?", ids).
		Update("locked", locked).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("id = ?", id).Delete(&Assignment{}).Error
}

// List 支持按保管人/激活状态过滤 + 分页。
func (r *Repo) List(ctx context.Context, custodianID string, activeOnly bool, offset, limit int) ([]Assignment, int64, error) {
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

	q := db.Model(&Assignment{})
	if custodianID != "" {
		q = q.Where("custodian_id = ?", custodianID)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Assignment
	if err := q.Order("assigned_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AppendMovement 追加移动历史。
func (r *Repo) AppendMovement(ctx context.Context, m *MovementRecord) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(m).Error
}

// MovementHistory 某资产的移动历史（时间正序）。
func (r *Repo) MovementHistory(ctx context.Context, assetID string) ([]MovementRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var recs []MovementRecord
	if err := db.Where("asset_id = ?", assetID).
		Order("moved_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
