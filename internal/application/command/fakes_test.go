package command

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
	"github.com/misis-lms/gamification-service/pkg/timeutil"
)

// In-memory repositories backing the handler tests. All of them are
// mutex-protected so concurrency tests exercise the same race folding the
// real storage layer performs.

type memUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*user.User
	byExt map[user.ExternalID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:  make(map[string]*user.User),
		byExt: make(map[user.ExternalID]*user.User),
	}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExt[u.ExternalID]; ok {
		return shared.ErrUserAlreadyExists
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byExt[u.ExternalID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByExternalID(_ context.Context, externalID user.ExternalID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byExt[externalID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) AddPoints(_ context.Context, id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return 0, shared.ErrUserNotFound
	}
	u.TotalPoints += delta
	return u.TotalPoints, nil
}

func (r *memUserRepo) UpdateLevel(_ context.Context, id string, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.Level = level
	return nil
}

func (r *memUserRepo) snapshot() map[string]user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[string]user.User, len(r.byID))
	for id, u := range r.byID {
		snap[id] = *u
	}
	return snap
}

func (r *memUserRepo) restore(snap map[string]user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*user.User, len(snap))
	r.byExt = make(map[user.ExternalID]*user.User, len(snap))
	for id := range snap {
		cp := snap[id]
		r.byID[id] = &cp
		r.byExt[cp.ExternalID] = &cp
	}
}

func (r *memUserRepo) List(_ context.Context, opts user.ListOptions) ([]*user.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*user.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TotalPoints > all[j].TotalPoints })
	total := len(all)
	if opts.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, total, nil
}

type memEventTypeRepo struct {
	mu    sync.Mutex
	types map[event.TypeCode]*event.EventType
}

func newMemEventTypeRepo() *memEventTypeRepo {
	return &memEventTypeRepo{types: make(map[event.TypeCode]*event.EventType)}
}

func (r *memEventTypeRepo) Create(_ context.Context, et *event.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[et.TypeCode]; ok {
		return shared.ErrEventTypeExists
	}
	cp := *et
	r.types[et.TypeCode] = &cp
	return nil
}

func (r *memEventTypeRepo) Update(_ context.Context, et *event.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[et.TypeCode]; !ok {
		return shared.ErrEventTypeNotFound
	}
	cp := *et
	r.types[et.TypeCode] = &cp
	return nil
}

func (r *memEventTypeRepo) GetByCode(_ context.Context, code event.TypeCode) (*event.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	et, ok := r.types[code]
	if !ok {
		return nil, shared.ErrEventTypeNotFound
	}
	cp := *et
	return &cp, nil
}

func (r *memEventTypeRepo) GetActiveByCode(_ context.Context, code event.TypeCode) (*event.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	et, ok := r.types[code]
	if !ok || !et.Active {
		return nil, shared.ErrEventTypeNotFound
	}
	cp := *et
	return &cp, nil
}

func (r *memEventTypeRepo) List(_ context.Context, includeInactive bool) ([]*event.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*event.EventType, 0, len(r.types))
	for _, et := range r.types {
		if !et.Active && !includeInactive {
			continue
		}
		cp := *et
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeCode < out[j].TypeCode })
	return out, nil
}

type memLedgerRepo struct {
	mu   sync.Mutex
	rows []*ledger.Transaction
	seen map[ledger.EventID]bool
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{seen: make(map[ledger.EventID]bool)}
}

func (r *memLedgerRepo) Exists(_ context.Context, eventID ledger.EventID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[eventID], nil
}

func (r *memLedgerRepo) Append(_ context.Context, tx *ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[tx.EventID] {
		return shared.ErrDuplicateEvent
	}
	cp := *tx
	r.rows = append(r.rows, &cp)
	r.seen[tx.EventID] = true
	return nil
}

func (r *memLedgerRepo) DailySum(_ context.Context, externalUserID, typeCode string, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, tx := range r.rows {
		if tx.UserID == externalUserID && tx.EventTypeCode == typeCode && timeutil.IsSameDay(tx.CreatedAt, day) {
			sum += tx.PointsEarned
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) SumByUser(_ context.Context, externalUserID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, tx := range r.rows {
		if tx.UserID == externalUserID {
			sum += tx.PointsEarned
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) ListByUser(_ context.Context, externalUserID string, page ledger.Page) ([]*ledger.Transaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var filtered []*ledger.Transaction
	for _, tx := range r.rows {
		if tx.UserID == externalUserID {
			cp := *tx
			filtered = append(filtered, &cp)
		}
	}
	return paginateTx(filtered, page)
}

func (r *memLedgerRepo) List(_ context.Context, page ledger.Page) ([]*ledger.Transaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cps := make([]*ledger.Transaction, len(r.rows))
	for i, tx := range r.rows {
		cp := *tx
		cps[i] = &cp
	}
	return paginateTx(cps, page)
}

func (r *memLedgerRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memLedgerRepo) snapshot() []ledger.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make([]ledger.Transaction, len(r.rows))
	for i, tx := range r.rows {
		snap[i] = *tx
	}
	return snap
}

func (r *memLedgerRepo) restore(snap []ledger.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make([]*ledger.Transaction, len(snap))
	r.seen = make(map[ledger.EventID]bool, len(snap))
	for i := range snap {
		cp := snap[i]
		r.rows[i] = &cp
		r.seen[cp.EventID] = true
	}
}

// rollbackTxManager gives the in-memory repositories real transaction
// semantics: writes made inside fn are discarded when fn returns an error.
type rollbackTxManager struct {
	users  *memUserRepo
	ledger *memLedgerRepo
}

func (m *rollbackTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	userSnap := m.users.snapshot()
	ledgerSnap := m.ledger.snapshot()
	if err := fn(ctx); err != nil {
		m.users.restore(userSnap)
		m.ledger.restore(ledgerSnap)
		return err
	}
	return nil
}

func paginateTx(rows []*ledger.Transaction, page ledger.Page) ([]*ledger.Transaction, int, error) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	total := len(rows)
	if page.Offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[page.Offset:]
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows, total, nil
}

type memCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*course.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{courses: make(map[string]*course.Course)}
}

func (r *memCourseRepo) Create(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.CourseID]; ok {
		return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already registered")
	}
	cp := *c
	r.courses[c.CourseID] = &cp
	return nil
}

func (r *memCourseRepo) GetByCourseID(_ context.Context, courseID string) (*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCourseRepo) ExistsByCourseID(_ context.Context, courseID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.courses[courseID]
	return ok, nil
}

func (r *memCourseRepo) List(_ context.Context) ([]*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*course.Course, 0, len(r.courses))
	for _, c := range r.courses {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

type groupKey struct {
	groupID   string
	courseRef string
}

type memGroupRepo struct {
	mu     sync.Mutex
	groups map[groupKey]*course.Group
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{groups: make(map[groupKey]*course.Group)}
}

func (r *memGroupRepo) Create(_ context.Context, g *course.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := groupKey{g.GroupID, g.CourseRef}
	if _, ok := r.groups[k]; ok {
		return shared.NewDomainError("course", "CreateGroup", shared.ErrAlreadyExists, "group already registered")
	}
	cp := *g
	r.groups[k] = &cp
	return nil
}

func (r *memGroupRepo) GetByGroupID(_ context.Context, groupID, courseRef string) (*course.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupKey{groupID, courseRef}]
	if !ok {
		return nil, shared.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *memGroupRepo) ExistsByGroupID(_ context.Context, groupID, courseRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.groups[groupKey{groupID, courseRef}]
	return ok, nil
}

type enrollKey struct {
	userRef   string
	courseRef string
}

type memEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[enrollKey]*course.Enrollment
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{enrollments: make(map[enrollKey]*course.Enrollment)}
}

func (r *memEnrollmentRepo) Create(_ context.Context, e *course.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := enrollKey{e.UserRef, e.CourseRef}
	if _, ok := r.enrollments[k]; ok {
		return shared.ErrAlreadyEnrolled
	}
	cp := *e
	r.enrollments[k] = &cp
	return nil
}

func (r *memEnrollmentRepo) Exists(_ context.Context, userRef, courseRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.enrollments[enrollKey{userRef, courseRef}]
	return ok, nil
}

func (r *memEnrollmentRepo) AddPoints(_ context.Context, userRef, courseRef string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollKey{userRef, courseRef}]
	if !ok {
		return shared.ErrUserNotEnrolled
	}
	e.PointsInCourse += points
	return nil
}

func (r *memEnrollmentRepo) Leaderboard(_ context.Context, courseRef, groupRef string, limit, offset int) ([]course.LeaderboardRow, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []course.LeaderboardRow
	for _, e := range r.enrollments {
		if e.CourseRef != courseRef {
			continue
		}
		if groupRef != "" && e.GroupRef != groupRef {
			continue
		}
		rows = append(rows, course.LeaderboardRow{
			UserExternalID: e.UserRef,
			PointsInCourse: e.PointsInCourse,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PointsInCourse > rows[j].PointsInCourse })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	total := len(rows)
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (r *memEnrollmentRepo) pointsOf(userRef, courseRef string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollKey{userRef, courseRef}]
	if !ok {
		return -1
	}
	return e.PointsInCourse
}
