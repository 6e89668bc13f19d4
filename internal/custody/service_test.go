package custody

import (
	"context"
	"testing"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/glebarez/sqlite"
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
		&Assignment{}, &MovementRecord{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// fixedCounter 代替借用明细仓储：返回固定引用数。
type fixedCounter int64

func (c fixedCounter) CountByAssignment(ctx context.Context, assignmentID string) (int64, error) {
	return int64(c), nil
}

func registerAsset(t *testing.T, db *gorm.DB, code string, status asset.Status) *asset.Asset {
	t.Helper()
	a, err := asset.NewService(db).Register(context.Background(), asset.RegisterInput{
		Code:          code,
		Description:   "multimeter",
		InitialStatus: status,
	})
	if err != nil {
		t.Fatalf("failed to register asset %s: %v", code, err)
	}
	return a
}

func TestAssignBatchPartialFailure(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	good := registerAsset(t, db, "AST-001", asset.StatusAvailable)
	broken := registerAsset(t, db, "AST-002", asset.StatusDamaged)

	res, err := s.Assign(context.Background(), AssignInput{
		AssetIDs:    []string{good.ID, broken.ID, "no-such-asset"},
		CustodianID: "p-custodian",
		LocationID:  "loc-1",
		ActorID:     "p-registry",
	})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if len(res.Assignments) != 1 || res.Assignments[0].AssetID != good.ID {
		t.Fatalf("assignments = %+v, want one for %s", res.Assignments, good.ID)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2", res.Errors)
	}
	codes := map[string]string{}
	for _, e := range res.Errors {
		codes[e.AssetID] = e.Code
	}
	if codes[broken.ID] != "state_conflict" {
		t.Errorf("damaged asset error code = %s, want state_conflict", codes[broken.ID])
	}
	if codes["no-such-asset"] != "not_found" {
		t.Errorf("missing asset error code = %s, want not_found", codes["no-such-asset"])
	}

	// 成功分配后资产的保管指针已更新
	var reloaded asset.Asset
	if err := db.First(&reloaded, "id = ?", good.ID).Error; err != nil {
		t.Fatalf("failed to reload asset: %v", err)
	}
	if reloaded.CustodianID != "p-custodian" || reloaded.LocationID != "loc-1" {
		t.Fatalf("asset pointers not updated: %+v", reloaded)
	}
}

func TestAssignSingleActiveInvariant(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	a := registerAsset(t, db, "AST-010", asset.StatusAvailable)
	ctx := context.Background()

	first, err := s.Assign(ctx, AssignInput{
		AssetIDs: []string{a.ID}, CustodianID: "p-alpha", ActorID: "p-registry",
	})
	if err != nil || len(first.Assignments) != 1 {
		t.Fatalf("first assign failed: %v / %+v", err, first)
	}

	second, err := s.Assign(ctx, AssignInput{
		AssetIDs: []string{a.ID}, CustodianID: "p-beta", ActorID: "p-registry",
	})
	if err != nil {
		t.Fatalf("second assign failed: %v", err)
	}
	if len(second.Assignments) != 0 || len(second.Errors) != 1 {
		t.Fatalf("second assign should conflict: %+v", second)
	}
	if second.Errors[0].Code != "state_conflict" {
		t.Fatalf("conflict code = %s", second.Errors[0].Code)
	}

	var n int64
	if err := db.Model(&Assignment{}).Where("asset_id = ? AND active = ?", a.ID, true).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("active assignments for asset = %d, want 1", n)
	}
}

func TestAssignValidation(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	ctx := context.Background()

	if _, err := s.Assign(ctx, AssignInput{AssetIDs: []string{"x"}, ActorID: "p-r"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for missing custodian, got %v", err)
	}
	if _, err := s.Assign(ctx, AssignInput{CustodianID: "p-c", ActorID: "p-r"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation for empty asset list, got %v", err)
	}
}

func TestUnassignLockedConflict(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	a := registerAsset(t, db, "AST-020", asset.StatusAvailable)
	ctx := context.Background()

	res, err := s.Assign(ctx, AssignInput{AssetIDs: []string{a.ID}, CustodianID: "p-c", ActorID: "p-r"})
	if err != nil || len(res.Assignments) != 1 {
		t.Fatalf("assign failed: %v", err)
	}
	id := res.Assignments[0].ID
	if err := db.Model(&Assignment{}).Where("id = ?", id).Update("locked", true).Error; err != nil {
		t.Fatalf("failed to lock: %v", err)
	}

	if err := s.Unassign(ctx, id, "p-r"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for locked assignment, got %v", err)
	}
}

func TestUnassignReferencedByLoanHistory(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(3))
	a := registerAsset(t, db, "AST-021", asset.StatusAvailable)
	ctx := context.Background()

	res, err := s.Assign(ctx, AssignInput{AssetIDs: []string{a.ID}, CustodianID: "p-c", ActorID: "p-r"})
	if err != nil || len(res.Assignments) != 1 {
		t.Fatalf("assign failed: %v", err)
	}
	if err := s.Unassign(ctx, res.Assignments[0].ID, "p-r"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for referenced assignment, got %v", err)
	}
}

func TestUnassignClearsAssetPointers(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	a := registerAsset(t, db, "AST-022", asset.StatusAvailable)
	ctx := context.Background()

	res, err := s.Assign(ctx, AssignInput{AssetIDs: []string{a.ID}, CustodianID: "p-c", LocationID: "loc-9", ActorID: "p-r"})
	if err != nil || len(res.Assignments) != 1 {
		t.Fatalf("assign failed: %v", err)
	}
	if err := s.Unassign(ctx, res.Assignments[0].ID, "p-r"); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}

	var reloaded asset.Asset
	if err := db.First(&reloaded, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("failed to reload asset: %v", err)
	}
	if reloaded.CustodianID != "" || reloaded.LocationID != "" {
		t.Fatalf("asset pointers not cleared: %+v", reloaded)
	}

	// 分配记录物理删除，移动历史保留 assign + unassign 两条
	var n int64
	if err := db.Model(&Assignment{}).Where("asset_id = ?", a.ID).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("assignment rows = %d, want 0", n)
	}
	moves, err := s.MovementHistory(ctx, a.ID)
	if err != nil {
		t.Fatalf("movement history failed: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("movements = %d, want 2", len(moves))
	}
}

func TestMovementHistoryOrder(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, fixedCounter(0))
	a := registerAsset(t, db, "AST-030", asset.StatusAvailable)
	ctx := context.Background()

	res, err := s.Assign(ctx, AssignInput{AssetIDs: []string{a.ID}, CustodianID: "p-c", ActorID: "p-r"})
	if err != nil || len(res.Assignments) != 1 {
		t.Fatalf("assign failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Unassign(ctx, res.Assignments[0].ID, "p-r"); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}

	moves, err := s.MovementHistory(ctx, a.ID)
	if err != nil {
		t.Fatalf("movement history failed: %v", err)
	}
	if len(moves) != 2 || moves[0].Kind != MovementAssign || moves[1].Kind != MovementUnassign {
		t.Fatalf("movement order wrong: %+v", moves)
	}
}
