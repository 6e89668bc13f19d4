package asset

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

func (r *Repo) Create(ctx context.Context, a *Asset) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(a).Error
}

func (r *Repo) Save(ctx context.Context, a *Asset) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(a).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Asset, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindByCode(ctx context.Context, code string) (*Asset, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Asset
	if err := db.Where("code = ?", code).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// List 支持按保管人/位置过滤 + 分页。
func (r *Repo) List(ctx context.Context, custodianID, locationID string, offset, limit int) ([]Asset, int64, error) {
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

	q := db.Model(&Asset{})
	if custodianID != "" {
		q = q.Where("custodian_id = ?", custodianID)
	}
	if locationID != "" {
		q = q.Where("location_id = ?", locationID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []Asset
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// AppendStatus 追加一条状态记录（历史只增不改）。
func (r *Repo) AppendStatus(ctx context.Context, rec *StatusRecord) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(rec).Error
}

// LatestStatus 取该资产最新一条状态记录。
func (r *Repo) LatestStatus(ctx context.Context, assetID string) (*StatusRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rec StatusRecord
	err := db.Where("asset_id = ?", assetID).
		Order("recorded_at DESC, id DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// StatusHistory 按时间正序返回全部状态记录。
func (r *Repo) StatusHistory(ctx context.Context, assetID string) ([]StatusRecord, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var recs []StatusRecord
	if err := db.Where("asset_id = ?", assetID).
		Order("recorded_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
