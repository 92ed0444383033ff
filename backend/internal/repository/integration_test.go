//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
	"shiftclock/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup（真实 PostgreSQL，执行内嵌迁移）
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=shiftclock password=shiftclock dbname=shiftclock_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func seedPG(t *testing.T) (org *model.Organization, worker *model.User, shift *model.Shift, a *model.ShiftAssignment) {
	t.Helper()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	org = &model.Organization{Name: fmt.Sprintf("org-%d", time.Now().UnixNano()), Timezone: "UTC", OvertimePolicy: "weekly"}
	if err := repo.Organization.Create(ctx, org); err != nil {
		t.Fatalf("创建组织失败: %v", err)
	}
	worker = &model.User{Name: "测试员工", Email: fmt.Sprintf("w%d@example.com", time.Now().UnixNano())}
	if err := repo.User.Create(ctx, worker); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	shift = &model.Shift{
		OrganizationID: org.OrganizationID, Title: "集成测试班次",
		ScheduledStart: start, ScheduledEnd: start.Add(8 * time.Hour),
		Capacity: 1, Status: model.ShiftStatusCompleted,
	}
	if err := repo.Shift.Create(ctx, shift); err != nil {
		t.Fatalf("创建班次失败: %v", err)
	}
	a = &model.ShiftAssignment{
		ShiftID: shift.ShiftID, WorkerID: worker.UserID, OrganizationID: org.OrganizationID,
		Status: model.AssignmentStatusActive,
	}
	if err := repo.Assignment.Create(ctx, a); err != nil {
		t.Fatalf("创建分配失败: %v", err)
	}
	return org, worker, shift, a
}

// ═══════════════════════════════════════════════════════════
// Test: 并发审批仅一方成功
// ═══════════════════════════════════════════════════════════

func TestConcurrentApproval_ExactlyOneWins(t *testing.T) {
	_, worker, shift, _ := seedPG(t)
	repo := repository.NewRepository(testDB)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transaction(context.Background(), func(tx *repository.Repository) error {
				return tx.Shift.TransitionStatus(context.Background(), shift.ShiftID,
					model.ShiftStatusCompleted, model.ShiftStatusApproved, worker.UserID, time.Now())
			})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				wins++
			case repository.ErrStatusChanged:
				conflict++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflict != 1 {
		t.Errorf("期望 1 成功 1 冲突，实际 成功=%d 冲突=%d", wins, conflict)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 部分唯一索引
// ═══════════════════════════════════════════════════════════

func TestPendingCorrectionUniqueIndex(t *testing.T) {
	org, worker, _, a := seedPG(t)
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	newReq := func() *model.TimeCorrectionRequest {
		return &model.TimeCorrectionRequest{
			AssignmentID: a.AssignmentID, WorkerID: worker.UserID, OrganizationID: org.OrganizationID,
			Reason: "设备故障未能打卡", Status: model.CorrectionStatusPending,
		}
	}
	if err := repo.Correction.Create(ctx, newReq()); err != nil {
		t.Fatalf("首次申请失败: %v", err)
	}
	if err := repo.Correction.Create(ctx, newReq()); err != repository.ErrDuplicatePending {
		t.Errorf("期望 ErrDuplicatePending，实际: %v", err)
	}
}

func TestEffectiveWindowCheckConstraint(t *testing.T) {
	org, _, _, a := seedPG(t)
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	got, err := repo.Assignment.GetByID(ctx, org.OrganizationID, a.AssignmentID)
	if err != nil {
		t.Fatalf("查询分配失败: %v", err)
	}
	in := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	out := in.Add(-time.Hour)
	got.EffectiveClockIn = &in
	got.EffectiveClockOut = &out
	if err := repo.Assignment.Update(ctx, got); err == nil {
		t.Error("effective_clock_out < effective_clock_in 应被数据库约束拒绝")
	}
}
