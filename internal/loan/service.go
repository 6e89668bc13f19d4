package loan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 借用申请编排器：驱动申请走完顺序审批、出门、归还的
// 状态机，并在指定流转点切换分配的锁标志。所有多实体写入都在
// 单个事务内完成，任一失败整体回滚。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ItemInput 借用明细入参：引用一条现有分配。
type ItemInput struct {
	AssignmentID string
	Quantity     int
	Description  string
}

// CreateInput 创建借用申请的入参。
type CreateInput struct {
	DestinationLocationID string
	Purpose               string
	LoanStart             time.Time
	LoanEnd               time.Time
	Observations          string
	Items                 []ItemInput
}

// Create 创建借用申请。每条明细必须指向存在且激活的分配；
// 已被其他未了结申请锁定的分配直接拒绝。
func (s *Service) Create(ctx context.Context, caller identity.Caller, in CreateInput) (*Request, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	if !caller.Valid() {
		return nil, apperr.Forbiddenf("caller identity required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validationf("at least one item required")
	}
	if in.LoanStart.IsZero() || in.LoanEnd.IsZero() {
		return nil, apperr.Validationf("loan_start and loan_end required")
	}
	if in.LoanEnd.Before(in.LoanStart) {
		return nil, apperr.Validationf("loan_end before loan_start")
	}
	if strings.TrimSpace(in.DestinationLocationID) == "" {
		return nil, apperr.Validationf("destination_location required")
	}

	req := &Request{
		ID:                    uuid.NewString(),
		RequesterID:           caller.PersonID,
		DestinationLocationID: strings.TrimSpace(in.DestinationLocationID),
		Purpose:               strings.TrimSpace(in.Purpose),
		Observations:          strings.TrimSpace(in.Observations),
		LoanStart:             in.LoanStart,
		LoanEnd:               in.LoanEnd,
		Status:                StatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		assignments := custody.NewRepo(tx)

		if err := repo.Create(ctx, req); err != nil {
			return err
		}
		for _, item := range in.Items {
			assignmentID := strings.TrimSpace(item.AssignmentID)
			if assignmentID == "" {
				return apperr.Validationf("item assignment_id required")
			}
			a, err := assignments.FindByID(ctx, assignmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("assignment %s not found", assignmentID)
				}
				return err
			}
			if !a.Active {
				return apperr.Conflictf("assignment %s is not active", assignmentID)
			}
			if a.Locked {
				return apperr.Conflictf("assignment %s is locked by another loan", assignmentID)
			}
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			detail := &RequestDetail{
				ID:           uuid.NewString(),
				RequestID:    req.ID,
				AssignmentID: assignmentID,
				Quantity:     qty,
				Description:  strings.TrimSpace(item.Description),
			}
			if err := repo.CreateDetail(ctx, detail); err != nil {
				return err
			}
			req.Details = append(req.Details, *detail)
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return req, nil
}

// CustodianSign 保管人签字环节。签字人必须是申请中每条明细
// 所指分配的保管人。
func (s *Service) CustodianSign(ctx context.Context, caller identity.Caller, requestID string, approve bool, note string) (*Request, error) {
	return s.sign(ctx, caller, requestID, StageCustodian, approve, note)
}

// CoordinatorSign 协调人审批环节。
func (s *Service) CoordinatorSign(ctx context.Context, caller identity.Caller, requestID string, approve bool, note string) (*Request, error) {
	return s.sign(ctx, caller, requestID, StageCoordinator, approve, note)
}

// AuthorizeExit 门卫放行：登记出门签字，并强制锁定所有涉及的分配。
func (s *Service) AuthorizeExit(ctx context.Context, caller identity.Caller, requestID, note string) (*Request, error) {
	return s.sign(ctx, caller, requestID, StageGuardExit, true, note)
}

// RegisterEntry 门卫入门登记：流程了结，解除所有分配的锁。
// 资产归还后仍归原保管人。
func (s *Service) RegisterEntry(ctx context.Context, caller identity.Caller, requestID, note string) (*Request, error) {
	return s.sign(ctx, caller, requestID, StageGuardEntry, true, note)
}

// sign 各签字环节的公共事务体：预读校验 + 条件写，
// (request_id, stage) 唯一索引兜底并发重复签字。
func (s *Service) sign(ctx context.Context, caller identity.Caller, requestID string, stage Stage, approve bool, note string) (*Request, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	if !caller.Valid() {
		return nil, apperr.Forbiddenf("caller identity required")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, apperr.Validationf("request_id required")
	}

	var out *Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)

		req, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("request %s not found", requestID)
			}
			return err
		}

		required, ok := StageRequiredStatus(stage)
		if !ok {
			return apperr.Validationf("unknown stage %q", stage)
		}
		if req.Status != required {
			return apperr.Conflictf("request is %s, stage %s requires %s", req.Status, stage, required)
		}

		// 重复签字预读（并发下由唯一索引最终裁决）
		if _, err := repo.FindSignature(ctx, requestID, stage); err == nil {
			return apperr.Conflictf("stage %s already signed", stage)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.checkSigner(ctx, tx, caller, req, stage); err != nil {
			return err
		}

		now := time.Now()
		sig := &Signature{
			ID:          uuid.NewString(),
			RequestID:   requestID,
			Stage:       stage,
			SignerID:    caller.PersonID,
			Approved:    approve,
			Observation: strings.TrimSpace(note),
			SignedAt:    now,
		}
		if err := repo.CreateSignature(ctx, sig); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflictf("stage %s already signed", stage)
			}
			return err
		}

		to, ok := StageOutcome(stage, approve)
		if !ok {
			return apperr.Validationf("stage %s cannot be rejected", stage)
		}
		if err := ApplyTransition(req, to, now); err != nil {
			return apperr.Conflictf("%v", err)
		}
		if err := repo.Update(ctx, req); err != nil {
			return err
		}

		// 锁标志只在门卫两个环节切换
		switch stage {
		case StageGuardExit:
			if err := s.setDetailLocks(ctx, tx, requestID, true); err != nil {
				return err
			}
		case StageGuardEntry:
			if err := s.setDetailLocks(ctx, tx, requestID, false); err != nil {
				return err
			}
		}

		req.Signatures = append(req.Signatures, *sig)
		out = req
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// checkSigner 各环节的能力与身份校验。能力判断基于调用者声明的
// 当前角色加全部持有角色的并集，而非单一固定属性。
func (s *Service) checkSigner(ctx context.Context, tx *gorm.DB, caller identity.Caller, req *Request, stage Stage) error {
	switch stage {
	case StageCustodian:
		if !caller.HasCapability(identity.RoleCustodian) {
			return apperr.Forbiddenf("caller lacks custodian role")
		}
		// 签字人必须是每条明细所指分配的保管人
		details, err := NewRepo(tx).DetailsByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		assignments := custody.NewRepo(tx)
		for _, d := range details {
			a, err := assignments.FindByID(ctx, d.AssignmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("assignment %s not found", d.AssignmentID)
				}
				return err
			}
			if a.CustodianID != caller.PersonID {
				return apperr.Forbiddenf("caller is not custodian of assignment %s", d.AssignmentID)
			}
		}
	case StageCoordinator:
		if !caller.HasCapability(identity.RoleCoordinator) {
			return apperr.Forbiddenf("caller lacks coordinator role")
		}
		// 前置环节必须是同意签字
		prior, err := NewRepo(tx).FindSignature(ctx, req.ID, StageCustodian)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Conflictf("custodian signature missing")
			}
			return err
		}
		if !prior.Approved {
			return apperr.Conflictf("custodian signature was a rejection")
		}
	case StageGuardExit, StageGuardEntry:
		if !caller.HasCapability(identity.RoleGuard) {
			return apperr.Forbiddenf("caller lacks guard role")
		}
		if stage == StageGuardEntry {
			if _, err := NewRepo(tx).FindSignature(ctx, req.ID, StageGuardExit); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.Conflictf("no exit authorization on record")
				}
				return err
			}
		}
	}
	return nil
}

// setDetailLocks 切换该申请所有明细指向的分配的锁标志。
func (s *Service) setDetailLocks(ctx context.Context, tx *gorm.DB, requestID string, locked bool) error {
	repo := NewRepo(tx)
	details, err := repo.DetailsByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.AssignmentID)
	}
	return custody.NewRepo(tx).SetLocked(ctx, ids, locked)
}

// Cancel 申请人取消。只允许在 pending 阶段；一旦有任何签字，
// 只能由当前审批方拒绝来终止流程。
func (s *Service) Cancel(ctx context.Context, caller identity.Caller, requestID, reason string) (*Request, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	if !caller.Valid() {
		return nil, apperr.Forbiddenf("caller identity required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validationf("cancellation reason required")
	}
	requestID = strings.TrimSpace(requestID)

	var out *Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		req, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("request %s not found", requestID)
			}
			return err
		}
		if req.RequesterID != caller.PersonID {
			return apperr.Forbiddenf("only the requester can cancel")
		}
		if req.Status != StatusPending {
			return apperr.Conflictf("request is %s, cancel requires pending", req.Status)
		}

		if err := ApplyTransition(req, StatusCancelled, time.Now()); err != nil {
			return apperr.Conflictf("%v", err)
		}
		if req.Observations != "" {
			req.Observations += "\n"
		}
		req.Observations += "cancelled: " + reason
		if err := repo.Update(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// Get 取申请及明细、签字记录。
func (s *Service) Get(ctx context.Context, requestID string) (*Request, error) {
	if s == nil || s.db == nil {
		return nil, apperr.Persistence(errors.New("service not initialized"))
	}
	req, err := NewRepo(s.db).FindFull(ctx, strings.TrimSpace(requestID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("request not found")
		}
		return nil, apperr.Persistence(err)
	}
	return req, nil
}

// ListFilter 查询条件。
type ListFilter struct {
	RequesterID string
	Status      Status
	Offset      int
	Limit       int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Request, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, apperr.Persistence(errors.New("service not initialized"))
	}
	reqs, total, err := NewRepo(s.db).List(ctx, strings.TrimSpace(f.RequesterID), f.Status, f.Offset, f.Limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	return reqs, total, nil
}

// ListPendingForRole 各角色的待办队列：保管人看指向自己分配的
// pending 申请，协调人看 custodian_signed，门卫看 approved 与 on_loan。
func (s *Service) ListPendingForRole(ctx context.Context, caller identity.Caller, role string, offset, limit int) ([]Request, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, apperr.Persistence(errors.New("service not initialized"))
	}
	repo := NewRepo(s.db)
	switch role {
	case identity.RoleCustodian:
		reqs, total, err := repo.ListPendingForCustodian(ctx, caller.PersonID, offset, limit)
		if err != nil {
			return nil, 0, apperr.Persistence(err)
		}
		return reqs, total, nil
	case identity.RoleCoordinator:
		reqs, total, err := repo.List(ctx, "", StatusCustodianSigned, offset, limit)
		if err != nil {
			return nil, 0, apperr.Persistence(err)
		}
		return reqs, total, nil
	case identity.RoleGuard:
		approved, n1, err := repo.List(ctx, "", StatusApproved, offset, limit)
		if err != nil {
			return nil, 0, apperr.Persistence(err)
		}
		onLoan, n2, err := repo.List(ctx, "", StatusOnLoan, offset, limit)
		if err != nil {
			return nil, 0, apperr.Persistence(err)
		}
		return append(approved, onLoan...), n1 + n2, nil
	default:
		return nil, 0, apperr.Validationf("unknown role %q", role)
	}
}

// wrap 把底层错误翻译成业务错误类别；已归类的原样透传。
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("record not found")
	}
	return apperr.Persistence(err)
}
