package loan

import (
	"context"
	"testing"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&asset.Asset{}, &asset.StatusRecord{},
		&custody.Assignment{}, &custody.MovementRecord{},
		&Request{}, &RequestDetail{}, &Signature{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// seedAssignment 登记一个可用资产并建立一条激活的分配。
func seedAssignment(t *testing.T, db *gorm.DB, custodianID string) *custody.Assignment {
	t.Helper()
	a, err := asset.NewService(db).Register(context.Background(), asset.RegisterInput{
		Code:        "AST-" + uuid.NewString()[:8],
		Description: "oscilloscope",
	})
	if err != nil {
		t.Fatalf("failed to register asset: %v", err)
	}
	assignment := &custody.Assignment{
		ID:          uuid.NewString(),
		AssetID:     a.ID,
		CustodianID: custodianID,
		LocationID:  "loc-1",
		AssignedAt:  time.Now(),
		Active:      true,
	}
	if err := db.Create(assignment).Error; err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
	return assignment
}

var (
	requester   = identity.Caller{PersonID: "p-requester", ActiveRole: identity.RoleRequester}
	custodianA  = identity.Caller{PersonID: "p-custodian-a", ActiveRole: identity.RoleCustodian}
	coordinator = identity.Caller{PersonID: "p-coordinator", ActiveRole: identity.RoleCoordinator}
	guard       = identity.Caller{PersonID: "p-guard", ActiveRole: identity.RoleGuard}
)

func createRequest(t *testing.T, s *Service, assignmentID string) *Request {
	t.Helper()
	req, err := s.Create(context.Background(), requester, CreateInput{
		DestinationLocationID: "loc-dest",
		Purpose:               "field measurement",
		LoanStart:             time.Now(),
		LoanEnd:               time.Now().Add(48 * time.Hour),
		Items:                 []ItemInput{{AssignmentID: assignmentID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return req
}

func TestCreateRequestStartsPending(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)

	req := createRequest(t, s, assignment.ID)
	if req.Status != StatusPending {
		t.Fatalf("new request status = %s, want pending", req.Status)
	}
	if len(req.Details) != 1 || req.Details[0].AssignmentID != assignment.ID {
		t.Fatalf("detail snapshot wrong: %+v", req.Details)
	}
	if req.RequesterID != requester.PersonID {
		t.Fatalf("requester = %s, want %s", req.RequesterID, requester.PersonID)
	}
}

func TestCreateRejectsLockedAssignment(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	if err := db.Model(&custody.Assignment{}).Where("id = ?", assignment.ID).Update("locked", true).Error; err != nil {
		t.Fatalf("failed to lock assignment: %v", err)
	}

	_, err := s.Create(context.Background(), requester, CreateInput{
		DestinationLocationID: "loc-dest",
		LoanStart:             time.Now(),
		LoanEnd:               time.Now().Add(time.Hour),
		Items:                 []ItemInput{{AssignmentID: assignment.ID}},
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for locked assignment, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	_, err := s.Create(context.Background(), requester, CreateInput{
		DestinationLocationID: "loc-dest",
		LoanStart:             time.Now(),
		LoanEnd:               time.Now().Add(time.Hour),
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty items, got %v", err)
	}

	_, err = s.Create(context.Background(), requester, CreateInput{
		DestinationLocationID: "loc-dest",
		LoanStart:             time.Now().Add(time.Hour),
		LoanEnd:               time.Now(),
		Items:                 []ItemInput{{AssignmentID: "x"}},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inverted window, got %v", err)
	}

	_, err = s.Create(context.Background(), requester, CreateInput{
		DestinationLocationID: "loc-dest",
		LoanStart:             time.Now(),
		LoanEnd:               time.Now().Add(time.Hour),
		Items:                 []ItemInput{{AssignmentID: uuid.NewString()}},
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing assignment, got %v", err)
	}
}

func TestFullApprovalFlow(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	req, err := s.CustodianSign(ctx, custodianA, req.ID, true, "ok")
	if err != nil {
		t.Fatalf("custodian sign failed: %v", err)
	}
	if req.Status != StatusCustodianSigned || req.CustodianSignedAt == nil {
		t.Fatalf("after custodian sign: status=%s", req.Status)
	}

	req, err = s.CoordinatorSign(ctx, coordinator, req.ID, true, "")
	if err != nil {
		t.Fatalf("coordinator sign failed: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("after coordinator sign: status=%s", req.Status)
	}

	req, err = s.AuthorizeExit(ctx, guard, req.ID, "gate 3")
	if err != nil {
		t.Fatalf("authorize exit failed: %v", err)
	}
	if req.Status != StatusOnLoan || req.ExitAt == nil {
		t.Fatalf("after exit: status=%s", req.Status)
	}

	// 出门后分配必须被锁定
	var locked custody.Assignment
	if err := db.First(&locked, "id = ?", assignment.ID).Error; err != nil {
		t.Fatalf("failed to reload assignment: %v", err)
	}
	if !locked.Locked {
		t.Fatal("assignment not locked after exit authorization")
	}

	req, err = s.RegisterEntry(ctx, guard, req.ID, "")
	if err != nil {
		t.Fatalf("register entry failed: %v", err)
	}
	if req.Status != StatusReturned || req.ReturnedAt == nil {
		t.Fatalf("after entry: status=%s", req.Status)
	}

	// 归还后解锁，且仍归原保管人
	if err := db.First(&locked, "id = ?", assignment.ID).Error; err != nil {
		t.Fatalf("failed to reload assignment: %v", err)
	}
	if locked.Locked {
		t.Fatal("assignment still locked after return")
	}
	if locked.CustodianID != custodianA.PersonID {
		t.Fatalf("custodian changed on return: %s", locked.CustodianID)
	}
}

func TestCoordinatorRejectIsTerminal(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); err != nil {
		t.Fatalf("custodian sign failed: %v", err)
	}
	out, err := s.CoordinatorSign(ctx, coordinator, req.ID, false, "budget freeze")
	if err != nil {
		t.Fatalf("coordinator reject failed: %v", err)
	}
	if out.Status != StatusRejected || out.RejectedAt == nil {
		t.Fatalf("after reject: status=%s", out.Status)
	}

	if _, err := s.AuthorizeExit(ctx, guard, req.ID, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for exit after rejection, got %v", err)
	}
}

func TestCancelOnlyWhilePending(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	// 非申请人不得取消
	if _, err := s.Cancel(ctx, custodianA, req.ID, "nope"); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-requester cancel, got %v", err)
	}
	// 取消必须给原因
	if _, err := s.Cancel(ctx, requester, req.ID, "  "); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for empty reason, got %v", err)
	}

	out, err := s.Cancel(ctx, requester, req.ID, "plans changed")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if out.Status != StatusCancelled || out.CancelledAt == nil {
		t.Fatalf("after cancel: status=%s", out.Status)
	}
	if out.Observations == "" {
		t.Fatal("cancel reason not recorded in observations")
	}

	// 取消后保管人签字必须冲突
	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for sign after cancel, got %v", err)
	}
}

func TestCancelBlockedAfterFirstSignature(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); err != nil {
		t.Fatalf("custodian sign failed: %v", err)
	}
	if _, err := s.Cancel(ctx, requester, req.ID, "too late"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for cancel after signature, got %v", err)
	}
}

func TestDuplicateStageSignature(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); err != nil {
		t.Fatalf("custodian sign failed: %v", err)
	}
	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for duplicate custodian signature, got %v", err)
	}
}

func TestSignerChecks(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	// 持有 custodian 角色但不是该分配的保管人
	other := identity.Caller{PersonID: "p-other", ActiveRole: identity.RoleCustodian}
	if _, err := s.CustodianSign(ctx, other, req.ID, true, ""); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for wrong custodian, got %v", err)
	}
	// 缺角色
	if _, err := s.CustodianSign(ctx, requester, req.ID, true, ""); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for missing role, got %v", err)
	}
	// 顺序审批：协调人不能越过保管人
	if _, err := s.CoordinatorSign(ctx, coordinator, req.ID, true, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for out-of-order coordinator sign, got %v", err)
	}
	// 能力集：持有角色列表里有 custodian 也可签
	holder := identity.Caller{PersonID: custodianA.PersonID, ActiveRole: identity.RoleRequester, HeldRoles: []string{identity.RoleCustodian}}
	if _, err := s.CustodianSign(ctx, holder, req.ID, true, ""); err != nil {
		t.Fatalf("held-role custodian sign failed: %v", err)
	}
}

func TestListPendingForRole(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	assignment := seedAssignment(t, db, custodianA.PersonID)
	req := createRequest(t, s, assignment.ID)
	ctx := context.Background()

	reqs, total, err := s.ListPendingForRole(ctx, custodianA, identity.RoleCustodian, 0, 10)
	if err != nil {
		t.Fatalf("custodian worklist failed: %v", err)
	}
	if total != 1 || len(reqs) != 1 || reqs[0].ID != req.ID {
		t.Fatalf("custodian worklist = %d items, total %d", len(reqs), total)
	}

	// 别人的待办不应出现
	otherCustodian := identity.Caller{PersonID: "p-other", ActiveRole: identity.RoleCustodian}
	_, total, err = s.ListPendingForRole(ctx, otherCustodian, identity.RoleCustodian, 0, 10)
	if err != nil {
		t.Fatalf("worklist failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("other custodian worklist total = %d, want 0", total)
	}

	if _, err := s.CustodianSign(ctx, custodianA, req.ID, true, ""); err != nil {
		t.Fatalf("custodian sign failed: %v", err)
	}
	reqs, total, err = s.ListPendingForRole(ctx, coordinator, identity.RoleCoordinator, 0, 10)
	if err != nil {
		t.Fatalf("coordinator worklist failed: %v", err)
	}
	if total != 1 || reqs[0].Status != StatusCustodianSigned {
		t.Fatalf("coordinator worklist total = %d", total)
	}

	if _, _, err := s.ListPendingForRole(ctx, guard, "janitor", 0, 10); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown role, got %v", err)
	}
}
