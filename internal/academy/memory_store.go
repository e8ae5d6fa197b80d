package academy

import (
	"context"
	"sort"
	"sync"
	"time"
)

type progressKey struct {
	user string
	id   int64
}

type memoryStore struct {
	mu  sync.RWMutex
	seq int64

	courses     map[int64]Course
	modules     map[int64]Module
	lessons     map[int64]Lesson
	questions   map[int64]Question
	lessonProg  map[progressKey]LessonProgress
	moduleProg  map[progressKey]ModuleProgress
	certs       map[int64]Certificate
	submissions map[int64]FinalTestSubmission
	assignments []CourseAssignment
	users       map[string]User
}

// MemoryStore is a Store kept in process memory. It also accepts user seeding.
type MemoryStore interface {
	Store
	PutUser(ctx context.Context, u User) error
}

func NewInMemoryStore() MemoryStore {
	return &memoryStore{
		courses:     map[int64]Course{},
		modules:     map[int64]Module{},
		lessons:     map[int64]Lesson{},
		questions:   map[int64]Question{},
		lessonProg:  map[progressKey]LessonProgress{},
		moduleProg:  map[progressKey]ModuleProgress{},
		certs:       map[int64]Certificate{},
		submissions: map[int64]FinalTestSubmission{},
		users:       map[string]User{},
	}
}

func (m *memoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) PutCourse(_ context.Context, c Course) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.courses {
		if other.Slug == c.Slug && other.ID != c.ID {
			return Course{}, Invalid("course slug %q already exists", c.Slug)
		}
	}
	if c.ID == 0 {
		c.ID = m.nextID()
	}
	m.courses[c.ID] = c
	return c, nil
}

func (m *memoryStore) GetCourse(_ context.Context, id int64) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, NotFound("course %d", id)
	}
	return c, nil
}

func (m *memoryStore) GetCourseBySlug(_ context.Context, slug string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.Slug == slug {
			return c, nil
		}
	}
	return Course{}, NotFound("course %q", slug)
}

func (m *memoryStore) ListCourses(_ context.Context, activeOnly bool) ([]Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Course{}
	for _, c := range m.courses {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *memoryStore) PutModule(_ context.Context, mod Module) (Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[mod.CourseID]; !ok {
		return Module{}, NotFound("course %d", mod.CourseID)
	}
	for _, other := range m.modules {
		if other.CourseID == mod.CourseID && other.Slug == mod.Slug && other.ID != mod.ID {
			return Module{}, Invalid("module slug %q already exists in course %d", mod.Slug, mod.CourseID)
		}
	}
	if mod.ID == 0 {
		mod.ID = m.nextID()
	}
	m.modules[mod.ID] = mod
	return mod, nil
}

func (m *memoryStore) GetModule(_ context.Context, id int64) (Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	if !ok {
		return Module{}, NotFound("module %d", id)
	}
	return mod, nil
}

func (m *memoryStore) GetModuleBySlug(_ context.Context, courseID int64, slug string) (Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mod := range m.modules {
		if mod.CourseID == courseID && mod.Slug == slug {
			return mod, nil
		}
	}
	return Module{}, NotFound("module %q", slug)
}

func (m *memoryStore) ListModules(_ context.Context, courseID int64) ([]Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Module{}
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, mod)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) PutLesson(_ context.Context, l Lesson) (Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[l.ModuleID]; !ok {
		return Lesson{}, NotFound("module %d", l.ModuleID)
	}
	if l.ID == 0 {
		l.ID = m.nextID()
	}
	m.lessons[l.ID] = l
	return l, nil
}

func (m *memoryStore) GetLesson(_ context.Context, id int64) (Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return Lesson{}, NotFound("lesson %d", id)
	}
	return l, nil
}

func (m *memoryStore) ListLessons(_ context.Context, moduleID int64) ([]Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lessonsOf(moduleID), nil
}

func (m *memoryStore) lessonsOf(moduleID int64) []Lesson {
	out := []Lesson{}
	for _, l := range m.lessons {
		if l.ModuleID == moduleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[q.ModuleID]; !ok {
		return Question{}, NotFound("module %d", q.ModuleID)
	}
	q.ID = m.nextID()
	choices := make([]Choice, len(q.Choices))
	for i, c := range q.Choices {
		c.ID = m.nextID()
		c.QuestionID = q.ID
		choices[i] = c
	}
	q.Choices = choices
	m.questions[q.ID] = q
	return q, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, moduleID int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.ModuleID == moduleID {
			q.Choices = append([]Choice(nil), q.Choices...)
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) DeleteQuestions(_ context.Context, moduleID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, q := range m.questions {
		if q.ModuleID == moduleID {
			delete(m.questions, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetLessonProgress(_ context.Context, userID string, lessonID int64) (LessonProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lp, ok := m.lessonProg[progressKey{userID, lessonID}]
	if !ok {
		return LessonProgress{}, NotFound("lesson progress %s/%d", userID, lessonID)
	}
	return lp, nil
}

func (m *memoryStore) CompleteLesson(_ context.Context, userID string, lessonID int64, now time.Time) (LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lessons[lessonID]; !ok {
		return LessonProgress{}, NotFound("lesson %d", lessonID)
	}
	k := progressKey{userID, lessonID}
	lp, ok := m.lessonProg[k]
	if !ok {
		lp = LessonProgress{UserID: userID, LessonID: lessonID}
	}
	lp.Completed = true
	if lp.CompletedAt == nil {
		t := now
		lp.CompletedAt = &t
	}
	m.lessonProg[k] = lp
	return lp, nil
}

func (m *memoryStore) CountCompletedLessons(_ context.Context, userID string, moduleID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, l := range m.lessonsOf(moduleID) {
		if lp, ok := m.lessonProg[progressKey{userID, l.ID}]; ok && lp.Completed {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetModuleProgress(_ context.Context, userID string, moduleID int64) (ModuleProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.moduleProg[progressKey{userID, moduleID}]
	if !ok {
		return ModuleProgress{}, NotFound("module progress %s/%d", userID, moduleID)
	}
	return p, nil
}

func (m *memoryStore) ListModuleProgress(_ context.Context, userID string) ([]ModuleProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ModuleProgress{}
	for k, p := range m.moduleProg {
		if userID == "" || k.user == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ModuleID < out[j].ModuleID
	})
	return out, nil
}

func (m *memoryStore) UpdateModuleProgress(_ context.Context, userID string, moduleID int64, fn func(*ModuleProgress) error) (ModuleProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProgressLocked(userID, moduleID, fn)
}

func (m *memoryStore) UpdateModuleProgressFromLessons(_ context.Context, userID string, moduleID int64, fn func(p *ModuleProgress, done, total int) error) (ModuleProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lessons := m.lessonsOf(moduleID)
	done := 0
	for _, l := range lessons {
		if lp, ok := m.lessonProg[progressKey{userID, l.ID}]; ok && lp.Completed {
			done++
		}
	}
	return m.updateProgressLocked(userID, moduleID, func(p *ModuleProgress) error {
		return fn(p, done, len(lessons))
	})
}

func (m *memoryStore) updateProgressLocked(userID string, moduleID int64, fn func(*ModuleProgress) error) (ModuleProgress, error) {
	if _, ok := m.modules[moduleID]; !ok {
		return ModuleProgress{}, NotFound("module %d", moduleID)
	}
	k := progressKey{userID, moduleID}
	p, ok := m.moduleProg[k]
	if !ok {
		p = NewModuleProgress(userID, moduleID)
	}
	if err := fn(&p); err != nil {
		return ModuleProgress{}, err
	}
	p.UserID, p.ModuleID = userID, moduleID
	m.moduleProg[k] = p
	return p, nil
}

func (m *memoryStore) GetCertificate(_ context.Context, id int64) (Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.certs[id]
	if !ok {
		return Certificate{}, NotFound("certificate %d", id)
	}
	return c, nil
}

func (m *memoryStore) FindCertificate(_ context.Context, userID string, moduleID int64) (Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.findCert(userID, moduleID); ok {
		return c, nil
	}
	return Certificate{}, NotFound("certificate %s/%d", userID, moduleID)
}

func (m *memoryStore) findCert(userID string, moduleID int64) (Certificate, bool) {
	for _, c := range m.certs {
		if c.UserID == userID && c.ModuleID == moduleID {
			return c, true
		}
	}
	return Certificate{}, false
}

func (m *memoryStore) CreateCertificate(_ context.Context, c Certificate) (Certificate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.findCert(c.UserID, c.ModuleID); ok {
		return existing, false, nil
	}
	for _, other := range m.certs {
		if other.CertificateNumber == c.CertificateNumber {
			return Certificate{}, false, Invalid("certificate number %q already issued", c.CertificateNumber)
		}
	}
	c.ID = m.nextID()
	m.certs[c.ID] = c
	return c, true, nil
}

func (m *memoryStore) ListCertificates(_ context.Context) ([]Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Certificate, 0, len(m.certs))
	for _, c := range m.certs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryStore) CreateSubmission(_ context.Context, s FinalTestSubmission) (FinalTestSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[s.ModuleID]; !ok {
		return FinalTestSubmission{}, NotFound("module %d", s.ModuleID)
	}
	s.ID = m.nextID()
	s.Answers = append([]AnswerSnapshot(nil), s.Answers...)
	m.submissions[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id int64) (FinalTestSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return FinalTestSubmission{}, NotFound("final test submission %d", id)
	}
	return s, nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, opts SubmissionListOpts) ([]FinalTestSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []FinalTestSubmission{}
	for _, s := range m.submissions {
		if opts.UserID != "" && s.UserID != opts.UserID {
			continue
		}
		if opts.ModuleID != 0 && s.ModuleID != opts.ModuleID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []FinalTestSubmission{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) ReviewSubmission(_ context.Context, id int64, in ReviewInput) (FinalTestSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return FinalTestSubmission{}, NotFound("final test submission %d", id)
	}
	at := in.ReviewedAt
	s.Reviewed = true
	s.IsPassed = in.Passed
	s.Feedback = in.Feedback
	s.ReviewedBy = in.ReviewedBy
	s.ReviewedAt = &at
	m.submissions[id] = s
	return s, nil
}

func (m *memoryStore) AssignCourse(_ context.Context, a CourseAssignment) (CourseAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (a.UserID == "") == (a.GroupID == "") {
		return CourseAssignment{}, Invalid("assignment needs exactly one of user or group")
	}
	if _, ok := m.courses[a.CourseID]; !ok {
		return CourseAssignment{}, NotFound("course %d", a.CourseID)
	}
	for _, other := range m.assignments {
		if other.CourseID == a.CourseID && other.UserID == a.UserID && other.GroupID == a.GroupID {
			return other, nil
		}
	}
	a.ID = m.nextID()
	m.assignments = append(m.assignments, a)
	return a, nil
}

func (m *memoryStore) AssignedCourseIDs(_ context.Context, userID string, groupIDs []string) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := map[string]bool{}
	for _, g := range groupIDs {
		groups[g] = true
	}
	seen := map[int64]bool{}
	out := []int64{}
	for _, a := range m.assignments {
		if (a.UserID != "" && a.UserID == userID) || (a.GroupID != "" && groups[a.GroupID]) {
			if !seen[a.CourseID] {
				seen[a.CourseID] = true
				out = append(out, a.CourseID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryStore) PutUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		return Invalid("user id required")
	}
	u.GroupIDs = append([]string(nil), u.GroupIDs...)
	m.users[u.ID] = u
	return nil
}

func (m *memoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, NotFound("user %q", id)
	}
	return u, nil
}

func (m *memoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, NotFound("user %q", username)
}

func (m *memoryStore) ListUsers(_ context.Context, roles ...string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := map[string]bool{}
	for _, r := range roles {
		want[r] = true
	}
	out := []User{}
	for _, u := range m.users {
		if len(want) > 0 && !want[u.Role] {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
