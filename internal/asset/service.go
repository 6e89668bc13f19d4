package asset

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 资产登记处的核心用例（不依赖传输层），负责资产档案与
// 只追加的状态历史。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RegisterInput 登记资产的入参。
type RegisterInput struct {
	Code        string
	Description string
	BrandID     string
	Model       string
	Serial      string

	AcquisitionCostCents int64
	AcquiredAt           *time.Time
	ExpectedLifeYears    int

	// 可选：登记时的初始状态，默认 available
	InitialStatus Status
}

// UpdateInput 描述性字段的修改入参（nil 表示不改）。
type UpdateInput struct {
	Description *string
	BrandID     *string
	Model       *string
	Serial      *string

	AcquisitionCostCents *int64
	AcquiredAt           *time.Time
	ExpectedLifeYears    *int
}

// Register 登记新资产，同一事务内写入初始状态记录，
// 保证“创建即至少有一条状态历史”的不变量。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Asset, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, apperr.Validationf("code required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperr.Validationf("description required")
	}
	initial := in.InitialStatus
	if initial == "" {
		initial = StatusAvailable
	}
	if !ValidStatus(initial) {
		return nil, apperr.Validationf("unknown initial status %q", initial)
	}

	a := &Asset{
		ID:                   uuid.NewString(),
		Code:                 code,
		Description:          strings.TrimSpace(in.Description),
		BrandID:              strings.TrimSpace(in.BrandID),
		Model:                strings.TrimSpace(in.Model),
		Serial:               strings.TrimSpace(in.Serial),
		AcquisitionCostCents: in.AcquisitionCostCents,
		AcquiredAt:           in.AcquiredAt,
		ExpectedLifeYears:    in.ExpectedLifeYears,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		if err := repo.Create(ctx, a); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflictf("asset code %s already registered", code)
			}
			return err
		}
		return repo.AppendStatus(ctx, &StatusRecord{
			AssetID:    a.ID,
			Status:     initial,
			RecordedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

// UpdateDetails 修改描述性字段。状态/保管指针不在此处改。
func (s *Service) UpdateDetails(ctx context.Context, id string, in UpdateInput) (*Asset, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	repo := NewRepo(s.db)
	a, err := repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, wrap(err)
	}

	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return nil, apperr.Validationf("description cannot be empty")
		}
		a.Description = desc
	}
	if in.BrandID != nil {
		a.BrandID = strings.TrimSpace(*in.BrandID)
	}
	if in.Model != nil {
		a.Model = strings.TrimSpace(*in.Model)
	}
	if in.Serial != nil {
		a.Serial = strings.TrimSpace(*in.Serial)
	}
	if in.AcquisitionCostCents != nil {
		a.AcquisitionCostCents = *in.AcquisitionCostCents
	}
	if in.AcquiredAt != nil {
		t := *in.AcquiredAt
		a.AcquiredAt = &t
	}
	if in.ExpectedLifeYears != nil {
		a.ExpectedLifeYears = *in.ExpectedLifeYears
	}

	if err := repo.Save(ctx, a); err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

// UpdateStatus 追加新的状态记录；与最新状态相同则幂等跳过。
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus Status) (*StatusRecord, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	if !ValidStatus(newStatus) {
		return nil, apperr.Validationf("unknown status %q", newStatus)
	}
	id = strings.TrimSpace(id)

	var rec *StatusRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return err
		}
		latest, err := repo.LatestStatus(ctx, id)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if latest != nil && latest.Status == newStatus {
			rec = latest // 幂等：状态未变不追加
			return nil
		}
		rec = &StatusRecord{AssetID: id, Status: newStatus, RecordedAt: time.Now()}
		return repo.AppendStatus(ctx, rec)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return rec, nil
}

// CurrentStatus 返回最新状态记录。
func (s *Service) CurrentStatus(ctx context.Context, id string) (*StatusRecord, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	rec, err := NewRepo(s.db).LatestStatus(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, wrap(err)
	}
	return rec, nil
}

// History 返回全部状态历史。
func (s *Service) History(ctx context.Context, id string) ([]StatusRecord, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	repo := NewRepo(s.db)
	if _, err := repo.FindByID(ctx, strings.TrimSpace(id)); err != nil {
		return nil, wrap(err)
	}
	recs, err := repo.StatusHistory(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, wrap(err)
	}
	return recs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	a, err := NewRepo(s.db).FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, custodianID, locationID string, offset, limit int) ([]Asset, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, apperr.Persistence(errors.New("service not initialized"))
	}
	assets, total, err := NewRepo(s.db).List(ctx, custodianID, locationID, offset, limit)
	if err != nil {
		return nil, 0, wrap(err)
	}
	return assets, total, nil
}

// wrap 把 GORM 层错误翻译成业务错误类别。
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("asset not found")
	}
	return apperr.Persistence(err)
}
