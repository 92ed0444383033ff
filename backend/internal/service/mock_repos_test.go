package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftclock/backend/config"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
	pkgerrors "shiftclock/backend/pkg/errors"
)

// ── 内存存储：所有 mock repo 共享，按值存取避免并发测试中的别名写 ──

type memStore struct {
	mu  sync.Mutex
	seq int

	orgs          map[string]model.Organization
	members       map[string]string // orgID|userID → role
	users         map[string]model.User
	locations     map[string]model.Location
	shifts        map[string]model.Shift
	assignments   map[string]model.ShiftAssignment
	corrections   map[string]model.TimeCorrectionRequest
	events        []model.AssignmentAuditEvent
	logs          []model.AuditLog
	notifications []model.Notification

	// 故障注入
	hidePending   bool            // GetPendingByAssignment 视而不见，只靠唯一索引兜底
	createLogErr  error           // 审计写入失败
	listBarrier   *sync.WaitGroup // ListByShift 读取后在此汇合，用于并发审批
	updateCounter int
}

func newMemStore() *memStore {
	return &memStore{
		orgs:        make(map[string]model.Organization),
		members:     make(map[string]string),
		users:       make(map[string]model.User),
		locations:   make(map[string]model.Location),
		shifts:      make(map[string]model.Shift),
		assignments: make(map[string]model.ShiftAssignment),
		corrections: make(map[string]model.TimeCorrectionRequest),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *memStore) toRepository() *repository.Repository {
	return &repository.Repository{
		Organization: &mockOrgRepo{s},
		Member:       &mockMemberRepo{s},
		User:         &mockUserRepo{s},
		Location:     &mockLocationRepo{s},
		Shift:        &mockShiftRepo{s},
		Assignment:   &mockAssignmentRepo{s},
		Correction:   &mockCorrectionRepo{s},
		Audit:        &mockAuditRepo{s},
		Notification: &mockNotificationRepo{s},
	}
}

// ── Mock OrganizationRepository / MemberRepository ──

type mockOrgRepo struct{ s *memStore }

func (m *mockOrgRepo) Create(_ context.Context, org *model.Organization) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if org.OrganizationID == "" {
		org.OrganizationID = m.s.nextID("org")
	}
	m.s.orgs[org.OrganizationID] = *org
	return nil
}

func (m *mockOrgRepo) GetByID(_ context.Context, id string) (*model.Organization, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if o, ok := m.s.orgs[id]; ok {
		return &o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockMemberRepo struct{ s *memStore }

func (m *mockMemberRepo) Create(_ context.Context, member *model.OrganizationMember) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.members[member.OrganizationID+"|"+member.UserID] = member.Role
	return nil
}

func (m *mockMemberRepo) GetRole(_ context.Context, orgID, userID string) (string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if role, ok := m.s.members[orgID+"|"+userID]; ok {
		return role, nil
	}
	return "", gorm.ErrRecordNotFound
}

// ── Mock UserRepository / LocationRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	m.s.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockLocationRepo struct{ s *memStore }

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if loc.LocationID == "" {
		loc.LocationID = m.s.nextID("loc")
	}
	m.s.locations[loc.LocationID] = *loc
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, orgID, id string) (*model.Location, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if l, ok := m.s.locations[id]; ok && l.OrganizationID == orgID && l.IsActive {
		return &l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct{ s *memStore }

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if shift.ShiftID == "" {
		shift.ShiftID = m.s.nextID("shift")
	}
	if shift.Version == 0 {
		shift.Version = 1
	}
	m.s.shifts[shift.ShiftID] = *shift
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, orgID, id string) (*model.Shift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sh, ok := m.s.shifts[id]; ok && sh.OrganizationID == orgID {
		return &sh, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.shifts[shift.ShiftID]
	if !ok || cur.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version++
	m.s.shifts[shift.ShiftID] = *shift
	return nil
}

func (m *mockShiftRepo) TransitionStatus(_ context.Context, id, from, to, actorID string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.shifts[id]
	if !ok || cur.Status != from {
		return repository.ErrStatusChanged
	}
	cur.Status = to
	cur.Version++
	switch {
	case to == model.ShiftStatusApproved:
		cur.ApprovedAt = &at
		cur.ApprovedBy = &actorID
	case from == model.ShiftStatusApproved:
		cur.ApprovedAt = nil
		cur.ApprovedBy = nil
	}
	m.s.shifts[id] = cur
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *memStore }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.ShiftAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a.AssignmentID == "" {
		a.AssignmentID = m.s.nextID("asg")
	}
	if a.Version == 0 {
		a.Version = 1
	}
	for _, other := range m.s.assignments {
		if other.ShiftID == a.ShiftID && other.WorkerID == a.WorkerID && other.Status != model.AssignmentStatusRemoved {
			return gorm.ErrDuplicatedKey
		}
	}
	stored := *a
	stored.Shift, stored.Worker = nil, nil
	m.s.assignments[a.AssignmentID] = stored
	return nil
}

// withShift 模拟预加载
func (m *mockAssignmentRepo) withShift(a model.ShiftAssignment) *model.ShiftAssignment {
	if sh, ok := m.s.shifts[a.ShiftID]; ok {
		a.Shift = &sh
	}
	if u, ok := m.s.users[a.WorkerID]; ok {
		a.Worker = &u
	}
	return &a
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, orgID, id string) (*model.ShiftAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.assignments[id]; ok && a.OrganizationID == orgID {
		return m.withShift(a), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) GetActiveByShiftAndWorker(_ context.Context, shiftID, workerID string) (*model.ShiftAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.assignments {
		if a.ShiftID == shiftID && a.WorkerID == workerID && a.Status != model.AssignmentStatusRemoved {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByShift(_ context.Context, shiftID string) ([]model.ShiftAssignment, error) {
	m.s.mu.Lock()
	var out []model.ShiftAssignment
	for _, a := range m.s.assignments {
		if a.ShiftID == shiftID && a.Status != model.AssignmentStatusRemoved {
			out = append(out, a)
		}
	}
	barrier := m.s.listBarrier
	m.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return out, nil
}

func (m *mockAssignmentRepo) CountByShift(_ context.Context, shiftID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, a := range m.s.assignments {
		if a.ShiftID == shiftID && a.Status != model.AssignmentStatusRemoved {
			n++
		}
	}
	return n, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.ShiftAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.assignments[a.AssignmentID]
	if !ok || cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	stored := *a
	stored.Shift, stored.Worker = nil, nil
	m.s.assignments[a.AssignmentID] = stored
	m.s.updateCounter++
	return nil
}

func (m *mockAssignmentRepo) ListForExport(_ context.Context, f repository.ExportFilter) ([]model.ShiftAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	statuses := make(map[string]bool)
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	var out []model.ShiftAssignment
	for _, a := range m.s.assignments {
		sh, ok := m.s.shifts[a.ShiftID]
		if !ok || a.OrganizationID != f.OrganizationID || !statuses[a.Status] {
			continue
		}
		if sh.ScheduledStart.Before(f.From) || !sh.ScheduledStart.Before(f.To) {
			continue
		}
		if f.WorkerID != "" && a.WorkerID != f.WorkerID {
			continue
		}
		if f.LocationID != "" && (sh.LocationID == nil || *sh.LocationID != f.LocationID) {
			continue
		}
		out = append(out, *m.withShift(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkerID != out[j].WorkerID {
			return out[i].WorkerID < out[j].WorkerID
		}
		if !out[i].Shift.ScheduledStart.Equal(out[j].Shift.ScheduledStart) {
			return out[i].Shift.ScheduledStart.Before(out[j].Shift.ScheduledStart)
		}
		return out[i].AssignmentID < out[j].AssignmentID
	})
	return out, nil
}

// ── Mock CorrectionRepository ──

type mockCorrectionRepo struct{ s *memStore }

func (m *mockCorrectionRepo) Create(_ context.Context, req *model.TimeCorrectionRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	// 模拟部分唯一索引 (assignment_id) WHERE status = 'pending'
	for _, other := range m.s.corrections {
		if other.AssignmentID == req.AssignmentID && other.Status == model.CorrectionStatusPending {
			return repository.ErrDuplicatePending
		}
	}
	if req.RequestID == "" {
		req.RequestID = m.s.nextID("corr")
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Date(2026, 3, 3, 0, 0, m.s.seq, 0, time.UTC)
	}
	m.s.corrections[req.RequestID] = *req
	return nil
}

func (m *mockCorrectionRepo) GetByID(_ context.Context, orgID, id string) (*model.TimeCorrectionRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.corrections[id]; ok && r.OrganizationID == orgID {
		return &r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCorrectionRepo) GetPendingByAssignment(_ context.Context, assignmentID string) (*model.TimeCorrectionRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.hidePending {
		return nil, gorm.ErrRecordNotFound
	}
	for _, r := range m.s.corrections {
		if r.AssignmentID == assignmentID && r.Status == model.CorrectionStatusPending {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCorrectionRepo) Resolve(_ context.Context, req *model.TimeCorrectionRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.corrections[req.RequestID]
	if !ok || cur.Status != model.CorrectionStatusPending {
		return repository.ErrStatusChanged
	}
	m.s.corrections[req.RequestID] = *req
	return nil
}

func (m *mockCorrectionRepo) List(_ context.Context, orgID, status string, offset, limit int) ([]model.TimeCorrectionRequest, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.TimeCorrectionRequest
	for _, r := range m.s.corrections {
		if r.OrganizationID == orgID && (status == "" || r.Status == status) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// ── Mock AuditRepository / NotificationRepository ──

type mockAuditRepo struct{ s *memStore }

func (m *mockAuditRepo) CreateAssignmentEvent(_ context.Context, event *model.AssignmentAuditEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if event.EventID == "" {
		event.EventID = m.s.nextID("evt")
	}
	m.s.events = append(m.s.events, *event)
	return nil
}

func (m *mockAuditRepo) ListAssignmentEvents(_ context.Context, assignmentID string) ([]model.AssignmentAuditEvent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AssignmentAuditEvent
	for _, e := range m.s.events {
		if e.AssignmentID == assignmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) CreateLog(_ context.Context, log *model.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.createLogErr != nil {
		return m.s.createLogErr
	}
	m.s.logs = append(m.s.logs, *log)
	return nil
}

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) CreateBatch(_ context.Context, list []model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.notifications = append(m.s.notifications, list...)
	return nil
}

func (m *mockNotificationRepo) CancelPendingByType(_ context.Context, shiftID, userID, notificationType string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for i := range m.s.notifications {
		nt := &m.s.notifications[i]
		if nt.ShiftID != nil && *nt.ShiftID == shiftID && nt.UserID == userID &&
			nt.Type == notificationType && nt.Status == model.NotificationStatusPending {
			nt.Status = model.NotificationStatusCancelled
			n++
		}
	}
	return n, nil
}

// ── Mock Notifier ──

type recordingNotifier struct {
	mu      sync.Mutex
	calls   []string
	failErr error
}

func (n *recordingNotifier) CancelByType(_ context.Context, shiftID, userID, notificationType string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, shiftID+"|"+userID+"|"+notificationType)
	return n.failErr
}

// ════════════════════════════════════════════════════════════
// 测试环境与种子数据
// ════════════════════════════════════════════════════════════

const (
	testOrg     = "org-1"
	testOther   = "org-2"
	testAdmin   = "user-admin"
	testManager = "user-manager"
	testWorker  = "user-worker"
	testWorker2 = "user-worker-2"
	testShiftID = "shift-1"
)

// 2026-03-02 为周一
var (
	shiftStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	shiftEnd   = time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
)

type testEnv struct {
	store    *memStore
	repo     *repository.Repository
	notifier *recordingNotifier
	cfg      *config.Config
	logger   *zap.Logger
	now      time.Time
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:    store,
		repo:     store.toRepository(),
		notifier: &recordingNotifier{},
		cfg:      &config.Config{Timesheet: config.DefaultTimesheetConfig()},
		logger:   zap.NewNop(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	store.orgs[testOrg] = model.Organization{
		OrganizationID:         testOrg,
		Name:                   "测试门店",
		Timezone:               "UTC",
		OvertimePolicy:         model.OvertimePolicyWeekly,
		DailyThresholdMinutes:  480,
		WeeklyThresholdMinutes: 2400,
	}
	store.orgs[testOther] = model.Organization{OrganizationID: testOther, Name: "其他组织", Timezone: "UTC"}
	for user, role := range map[string]string{
		testAdmin:   "admin",
		testManager: "manager",
		testWorker:  "worker",
		testWorker2: "worker",
	} {
		store.members[testOrg+"|"+user] = role
		store.users[user] = model.User{UserID: user, Name: user}
	}
	return env
}

func (e *testEnv) clock() func() time.Time {
	return func() time.Time { return e.now }
}

func (e *testEnv) addShift(id, status string) model.Shift {
	sh := model.Shift{
		ShiftID:        id,
		OrganizationID: testOrg,
		Title:          "早班",
		ScheduledStart: shiftStart,
		ScheduledEnd:   shiftEnd,
		Capacity:       2,
		Status:         status,
	}
	sh.Version = 1
	e.store.shifts[id] = sh
	return sh
}

func (e *testEnv) addAssignment(id, shiftID, workerID string, in, out *time.Time) model.ShiftAssignment {
	a := model.ShiftAssignment{
		AssignmentID:   id,
		ShiftID:        shiftID,
		WorkerID:       workerID,
		OrganizationID: testOrg,
		Status:         model.AssignmentStatusActive,
		ActualClockIn:  in,
		ActualClockOut: out,
	}
	a.Version = 1
	e.store.assignments[id] = a
	return a
}

func (e *testEnv) assignment(id string) model.ShiftAssignment {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.assignments[id]
}

func (e *testEnv) shift(id string) model.Shift {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.shifts[id]
}

func at(base time.Time, d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
