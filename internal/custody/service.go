package custody

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DetailCounter 解耦台账对借用明细表的历史引用检查：
// 被任何 RequestDetail 引用过的分配永不允许物理删除。
// 由借用编排器的仓储实现（见 loan.Repo.CountByAssignment）。
type DetailCounter interface {
	CountByAssignment(ctx context.Context, assignmentID string) (int64, error)
}

// Service 保管台账核心用例：分配资产给保管人、解除分配、查询。
// 依赖资产登记处校验资产存在性与状态。
type Service struct {
	db      *gorm.DB
	details DetailCounter
}

func NewService(db *gorm.DB, details DetailCounter) *Service {
	return &Service{db: db, details: details}
}

// AssignInput 批量分配入参。
type AssignInput struct {
	AssetIDs    []string
	CustodianID string
	LocationID  string
	ActorID     string
}

// ItemError 批量分配中单个资产的失败原因。
type ItemError struct {
	AssetID string `json:"asset_id"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
}

// AssignResult 批量分配结果：成功与失败并存，整体不失败。
type AssignResult struct {
	Assignments []Assignment `json:"assignments"`
	Errors      []ItemError  `json:"errors"`
}

// Assign 把一批资产分配给保管人。每个资产独立处理、独立事务：
// 校验失败的进入错误列表，不影响其余资产成功。
func (s *Service) Assign(ctx context.Context, in AssignInput) (*AssignResult, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	custodianID := strings.TrimSpace(in.CustodianID)
	if custodianID == "" {
		return nil, apperr.Validationf("custodian_id required")
	}
	if strings.TrimSpace(in.ActorID) == "" {
		return nil, apperr.Validationf("actor_id required")
	}
	if len(in.AssetIDs) == 0 {
		return nil, apperr.Validationf("asset_ids required")
	}

	result := &AssignResult{}
	for _, raw := range in.AssetIDs {
		assetID := strings.TrimSpace(raw)
		if assetID == "" {
			continue
		}
		a, err := s.assignOne(ctx, assetID, custodianID, strings.TrimSpace(in.LocationID), strings.TrimSpace(in.ActorID))
		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				AssetID: assetID,
				Code:    apperr.CodeOf(err),
				Reason:  reasonOf(err),
			})
			continue
		}
		result.Assignments = append(result.Assignments, *a)
	}
	return result, nil
}

// assignOne 单个资产的分配事务。
func (s *Service) assignOne(ctx context.Context, assetID, custodianID, locationID, actorID string) (*Assignment, error) {
	var created *Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assets := asset.NewRepo(tx)
		repo := NewRepo(tx)

		a, err := assets.FindByID(ctx, assetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("asset %s not found", assetID)
			}
			return err
		}

		latest, err := assets.LatestStatus(ctx, assetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("asset %s has no status record", assetID)
			}
			return err
		}
		if latest.Status != asset.StatusAvailable {
			return apperr.Conflictf("asset %s is %s, not available", assetID, latest.Status)
		}

		prior, err := repo.FindActiveByAsset(ctx, assetID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if prior != nil {
			if prior.Locked {
				return apperr.Conflictf("asset %s is locked by an unresolved loan", assetID)
			}
			if prior.CustodianID != "" {
				return apperr.Conflictf("asset %s already custodied by %s", assetID, prior.CustodianID)
			}
			// 兜底：无保管人的残留 active 记录，先清理再分配
			if err := repo.DeactivateByAsset(ctx, assetID); err != nil {
				return err
			}
		}

		now := time.Now()
		created = &Assignment{
			ID:          uuid.NewString(),
			AssetID:     assetID,
			CustodianID: custodianID,
			LocationID:  locationID,
			AssignedAt:  now,
			Active:      true,
			Locked:      false,
		}
		if err := repo.Create(ctx, created); err != nil {
			return err
		}

		fromCustodian := a.CustodianID
		fromLocation := a.LocationID
		a.CustodianID = custodianID
		a.LocationID = locationID
		if err := assets.Save(ctx, a); err != nil {
			return err
		}

		return repo.AppendMovement(ctx, &MovementRecord{
			AssetID:         assetID,
			AssignmentID:    created.ID,
			Kind:            MovementAssign,
			FromCustodianID: fromCustodian,
			ToCustodianID:   custodianID,
			FromLocationID:  fromLocation,
			ToLocationID:    locationID,
			ActorID:         actorID,
			MovedAt:         now,
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return nil, err
		}
		return nil, apperr.Persistence(err)
	}
	return created, nil
}

// Unassign 解除分配。锁定中或被借用明细引用过的分配一律拒绝，
// 其余情况物理删除并清空资产的保管指针。
func (s *Service) Unassign(ctx context.Context, assignmentID, actorID string) error {
	if s == nil || s.db == nil {
		return apperr.Persistence(errors.New("service not initialized"))
	}
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return apperr.Validationf("assignment_id required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		assets := asset.NewRepo(tx)

		a, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("assignment %s not found", assignmentID)
			}
			return err
		}
		if a.Locked {
			return apperr.Conflictf("assignment %s is locked by an unresolved loan", assignmentID)
		}
		if s.details != nil {
			n, err := s.details.CountByAssignment(ctx, assignmentID)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflictf("assignment %s is referenced by loan history", assignmentID)
			}
		}

		if err := repo.Delete(ctx, assignmentID); err != nil {
			return err
		}

		ast, err := assets.FindByID(ctx, a.AssetID)
		if err != nil {
			return err
		}
		fromCustodian := ast.CustodianID
		fromLocation := ast.LocationID
		ast.CustodianID = ""
		ast.LocationID = ""
		if err := assets.Save(ctx, ast); err != nil {
			return err
		}

		return repo.AppendMovement(ctx, &MovementRecord{
			AssetID:         a.AssetID,
			AssignmentID:    a.ID,
			Kind:            MovementUnassign,
			FromCustodianID: fromCustodian,
			FromLocationID:  fromLocation,
			ActorID:         strings.TrimSpace(actorID),
			MovedAt:         time.Now(),
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return err
		}
		return apperr.Persistence(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Assignment, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	a, err := NewRepo(s.db).FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("assignment not found")
		}
		return nil, apperr.Persistence(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, custodianID string, activeOnly bool, offset, limit int) ([]Assignment, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, apperr.Persistence(errors.New("service not initialized"))
	}
	out, total, err := NewRepo(s.db).List(ctx, strings.TrimSpace(custodianID), activeOnly, offset, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	return out, total, nil
}

// MovementHistory 查询某资产的移动历史。
func (s *Service) MovementHistory(ctx context.Context, assetID string) ([]MovementRecord, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	recs, err := NewRepo(s.db).MovementHistory(ctx, strings.TrimSpace(assetID))
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return recs, nil
}

// reasonOf 提取对外可见的失败原因文本。
func reasonOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
