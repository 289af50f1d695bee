package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/payment"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/google/uuid"
)

// In-memory stores mirroring the repository contracts: misses return
// repository.ErrNotFound and session transitions are conditional.

type memUsers struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	teachers *memTeachers
}

func newMemUsers(teachers *memTeachers) *memUsers {
	return &memUsers{users: map[uuid.UUID]*model.User{}, teachers: teachers}
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) CreateTeacher(ctx context.Context, u *model.User, t *model.TeacherProfile) error {
	if err := m.Create(ctx, u); err != nil {
		return err
	}
	t.UserID = u.ID
	m.teachers.put(t)
	return nil
}

func (m *memUsers) ListByStatus(_ context.Context, status model.UserStatus) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if u.Status == status {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id uuid.UUID, status model.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *memUsers) ListTeachers(ctx context.Context) ([]model.UserWithTeacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserWithTeacher
	for _, u := range m.users {
		if u.Role != model.RoleTeacher {
			continue
		}
		cp := *u
		t, _ := m.teachers.GetByUserID(ctx, u.ID)
		out = append(out, model.UserWithTeacher{User: &cp, TeacherInfo: t})
	}
	return out, nil
}

type memTeachers struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.TeacherProfile
}

func newMemTeachers() *memTeachers {
	return &memTeachers{profiles: map[uuid.UUID]*model.TeacherProfile{}}
}

func (m *memTeachers) put(t *model.TeacherProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.profiles[t.UserID] = &cp
}

func (m *memTeachers) addFree(id uuid.UUID) {
	m.put(&model.TeacherProfile{
		UserID:             id,
		SubscriptionTier:   model.TierFree,
		SubscriptionStatus: model.SubscriptionActive,
		QuotaQuestions:     FreeQuotaQuestions,
		QuotaStudents:      FreeQuotaStudents,
	})
}

func (m *memTeachers) GetByUserID(_ context.Context, id uuid.UUID) (*model.TeacherProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTeachers) ActivatePro(_ context.Context, id uuid.UUID, end time.Time, qq, qs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.SubscriptionTier = model.TierPro
	t.SubscriptionStatus = model.SubscriptionActive
	t.SubscriptionEndDate = &end
	t.QuotaQuestions = qq
	t.QuotaStudents = qs
	return nil
}

func (m *memTeachers) DowngradeExpired(_ context.Context, now time.Time, qq, qs int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.profiles {
		if t.SubscriptionTier == model.TierPro && t.SubscriptionEndDate != nil && t.SubscriptionEndDate.Before(now) {
			t.SubscriptionTier = model.TierFree
			t.SubscriptionStatus = model.SubscriptionExpired
			t.QuotaQuestions = qq
			t.QuotaStudents = qs
			n++
		}
	}
	return n, nil
}

type memQuestions struct {
	mu        sync.Mutex
	questions map[uuid.UUID]model.Question
	// afterCount lets a test interleave work between the quota count and the
	// insert.
	afterCount func()
}

func newMemQuestions() *memQuestions {
	return &memQuestions{questions: map[uuid.UUID]model.Question{}}
}

func (m *memQuestions) add(q model.Question) model.Question {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	m.mu.Lock()
	m.questions[q.ID] = q
	m.mu.Unlock()
	return q
}

func (m *memQuestions) Create(_ context.Context, q *model.Question) error {
	m.add(*q)
	return nil
}

func (m *memQuestions) ListByTeacher(_ context.Context, teacherID uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Question
	for _, q := range m.questions {
		if q.TeacherID == teacherID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestions) CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error) {
	qs, _ := m.ListByTeacher(ctx, teacherID)
	if m.afterCount != nil {
		m.afterCount()
	}
	return len(qs), nil
}

func (m *memQuestions) Delete(_ context.Context, id, teacherID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.TeacherID != teacherID {
		return repository.ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

func (m *memQuestions) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestions) OwnedIDs(_ context.Context, teacherID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, id := range ids {
		if q, ok := m.questions[id]; ok && q.TeacherID == teacherID {
			out = append(out, id)
		}
	}
	return out, nil
}

type memExams struct {
	mu    sync.Mutex
	exams []model.Exam
}

func (m *memExams) add(e model.Exam) model.Exam {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = model.ExamStatusActive
	}
	m.mu.Lock()
	e.CreatedAt = time.Unix(int64(len(m.exams)), 0)
	m.exams = append(m.exams, e)
	m.mu.Unlock()
	return e
}

func (m *memExams) Create(_ context.Context, e *model.Exam) error {
	m.add(*e)
	return nil
}

func (m *memExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.exams {
		if m.exams[i].ID == id {
			cp := m.exams[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memExams) GetOwned(ctx context.Context, id, teacherID uuid.UUID) (*model.Exam, error) {
	e, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.TeacherID != teacherID {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (m *memExams) GetByToken(_ context.Context, token string) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.exams) - 1; i >= 0; i-- {
		if m.exams[i].Token == token {
			cp := m.exams[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memExams) ListByTeacher(_ context.Context, teacherID uuid.UUID) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exam
	for _, e := range m.exams {
		if e.TeacherID == teacherID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memExams) Delete(_ context.Context, id, teacherID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.exams {
		if m.exams[i].ID == id && m.exams[i].TeacherID == teacherID {
			m.exams = append(m.exams[:i], m.exams[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[uuid.UUID]*model.ExamSession{}}
}

func copySession(s *model.ExamSession) *model.ExamSession {
	cp := *s
	cp.Answers = make(map[string]model.AnswerEntry, len(s.Answers))
	for k, v := range s.Answers {
		cp.Answers[k] = v
	}
	return &cp
}

func (m *memSessions) Create(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copySession(s)
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	m.sessions[s.ID] = cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(s), nil
}

func (m *memSessions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.ExamID == examID {
			out = append(out, *copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// inProgress runs fn on the stored session only while it is in progress.
func (m *memSessions) inProgress(id uuid.UUID, fn func(s *model.ExamSession)) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionStatusInProgress {
		return nil, repository.ErrNotFound
	}
	fn(s)
	return copySession(s), nil
}

func (m *memSessions) SaveAnswer(_ context.Context, id uuid.UUID, questionID string, entry model.AnswerEntry) (*model.ExamSession, error) {
	return m.inProgress(id, func(s *model.ExamSession) { s.Answers[questionID] = entry })
}

func (m *memSessions) IncrementViolations(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.ViolationsCount++
	return copySession(s), nil
}

func (m *memSessions) ForceSubmit(_ context.Context, id uuid.UUID, at time.Time) (*model.ExamSession, error) {
	return m.inProgress(id, func(s *model.ExamSession) {
		zero := 0.0
		s.Status = model.SessionStatusForceSubmitted
		s.SubmittedAt = &at
		s.FinalScore = &zero
	})
}

func (m *memSessions) Submit(_ context.Context, id uuid.UUID, score float64, at time.Time) (*model.ExamSession, error) {
	return m.inProgress(id, func(s *model.ExamSession) {
		s.Status = model.SessionStatusSubmitted
		s.SubmittedAt = &at
		s.FinalScore = &score
	})
}

type memSubscriptions struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{subs: map[string]*model.Subscription{}}
}

func (m *memSubscriptions) Create(_ context.Context, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s.OrderID]; ok {
		return repository.ErrDuplicateOrder
	}
	cp := *s
	m.subs[s.OrderID] = &cp
	return nil
}

func (m *memSubscriptions) GetByOrderID(_ context.Context, orderID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptions) UpdateStatus(_ context.Context, orderID string, status model.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = status
	return nil
}

type fakeGateway struct {
	serverKey string
	err       error
	requests  []payment.SnapRequest
}

func (g *fakeGateway) CreateSnapToken(_ context.Context, req payment.SnapRequest) (*payment.SnapResult, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payment.SnapResult{Token: "snap-" + req.OrderID, RedirectURL: "https://example.test/" + req.OrderID}, nil
}

func (g *fakeGateway) VerifySignature(n *model.PaymentNotification) bool {
	return payment.VerifySignature(n, g.serverKey)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.MonitorEvent
}

func (p *recordingPublisher) PublishSessionEvent(_ context.Context, evt model.MonitorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []model.MonitorEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.MonitorEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingQueue struct {
	mu     sync.Mutex
	events []model.ViolationEvent
}

func (q *recordingQueue) EnqueueViolation(_ context.Context, evt model.ViolationEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, evt)
	return nil
}

func raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
