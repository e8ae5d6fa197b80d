package learning

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/certify"
	"github.com/mind-engage/mindengage-academy/internal/grading"
	"github.com/mind-engage/mindengage-academy/internal/notify"
	"github.com/mind-engage/mindengage-academy/internal/storage"
)

var t0 = time.Unix(1700000000, 0).UTC()

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, m notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
	return f.err
}

type recordedEvent struct {
	typ, key string
	data     any
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeSink) Record(_ context.Context, typ, key string, data any, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{typ, key, data})
	return int64(len(f.events)), nil
}

func (f *fakeSink) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.typ)
	}
	return out
}

type fakeBus struct {
	events []notify.Event
}

func (b *fakeBus) Publish(_ context.Context, ev notify.Event) error {
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBus) Close() error { return nil }

type fakeRenderer struct{ calls int }

func (r *fakeRenderer) Render(v certify.View) ([]byte, error) {
	r.calls++
	return []byte("png:" + v.Number), nil
}

type env struct {
	svc      *Service
	store    academy.MemoryStore
	mail     *fakeNotifier
	sink     *fakeSink
	bus      *fakeBus
	renderer *fakeRenderer
	blobs    *storage.MemStore

	course         academy.Course
	intro, final   academy.Module
	introQ, finalQ []academy.Question
	lessons        []academy.Lesson

	learner, other, manager academy.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{
		store:    academy.NewInMemoryStore(),
		mail:     &fakeNotifier{},
		sink:     &fakeSink{},
		bus:      &fakeBus{},
		renderer: &fakeRenderer{},
		blobs:    storage.NewMemStore(),
	}
	var err error
	if e.course, err = e.store.PutCourse(ctx, academy.Course{Title: "Driver Induction", Slug: "induction", Order: 1, IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if e.intro, err = e.store.PutModule(ctx, academy.Module{CourseID: e.course.ID, Title: "Intro", Slug: "intro", Order: 1, MinScoreToPass: 80, IsMandatory: true}); err != nil {
		t.Fatal(err)
	}
	if e.final, err = e.store.PutModule(ctx, academy.Module{CourseID: e.course.ID, Title: "Final", Slug: "final", Order: 2, MinScoreToPass: 80, IsMandatory: true, IsFinalAssessment: true}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 2; i++ {
		l, err := e.store.PutLesson(ctx, academy.Lesson{ModuleID: e.intro.ID, Title: "Lesson " + strconv.Itoa(i), Order: i})
		if err != nil {
			t.Fatal(err)
		}
		e.lessons = append(e.lessons, l)
	}
	e.introQ = putQuestions(t, e.store, e.intro.ID, 2)
	e.finalQ = putQuestions(t, e.store, e.final.ID, 2)

	e.learner = academy.User{ID: "u1", Username: "ann", FullName: "Ann Driver", Role: academy.RoleLearner, IsActive: true, GroupIDs: []string{"drivers"}}
	e.other = academy.User{ID: "u2", Username: "bob", Role: academy.RoleLearner, IsActive: true}
	e.manager = academy.User{ID: "m1", Username: "meg", Email: "meg@example.com", Role: academy.RoleManager, IsActive: true}
	for _, u := range []academy.User{e.learner, e.other, e.manager} {
		if err := e.store.PutUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	certs := certify.NewService(e.store, certify.WithPrefix("ACAD"), certify.WithListener(
		MailAdmins(e.mail, []string{"admin@example.com"}, "https://academy.example/"),
		RecordIssued(e.sink),
		Broadcast(e.bus),
	))
	e.svc = NewService(Deps{
		Store:    e.store,
		Certs:    certs,
		Renderer: e.renderer,
		Blobs:    e.blobs,
		Notifier: e.mail,
		Events:   e.sink,
	})
	return e
}

func putQuestions(t *testing.T, s academy.Store, moduleID int64, n int) []academy.Question {
	t.Helper()
	var out []academy.Question
	for i := 1; i <= n; i++ {
		q, err := s.PutQuestion(context.Background(), academy.Question{
			ModuleID:    moduleID,
			Text:        "Question " + strconv.Itoa(i),
			Order:       i,
			Explanation: "Because " + strconv.Itoa(i),
			Choices: []academy.Choice{
				{Text: "wrong"},
				{Text: "right", IsCorrect: true},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, q)
	}
	return out
}

// answer picks the correct choice for the first `right` questions and the wrong one for the rest.
func answer(qs []academy.Question, right int) grading.Submission {
	sub := grading.Submission{}
	for i, q := range qs {
		c := q.Choices[0]
		if i < right {
			c = q.Choices[1]
		}
		sub[q.ID] = strconv.FormatInt(c.ID, 10)
	}
	return sub
}

func passIntro(t *testing.T, e *env, u academy.User) {
	t.Helper()
	out, err := e.svc.SubmitQuiz(context.Background(), u, "induction", "intro", answer(e.introQ, 2), t0)
	if err != nil || !out.Passed {
		t.Fatalf("pass intro: %+v %v", out, err)
	}
}

func TestDashboardShowsAssignedActiveCourses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inactive, err := e.store.PutCourse(ctx, academy.Course{Title: "Old", Slug: "old", IsActive: false})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.AssignCourse(ctx, e.manager, academy.CourseAssignment{CourseID: e.course.ID, GroupID: "drivers"}, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.AssignCourse(ctx, e.manager, academy.CourseAssignment{CourseID: inactive.ID, UserID: e.learner.ID}, t0); err != nil {
		t.Fatal(err)
	}

	passIntro(t, e, e.learner)
	got, err := e.svc.Dashboard(ctx, e.learner)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Course.ID != e.course.ID {
		t.Fatalf("dashboard = %+v", got)
	}
	if got[0].PassedModules != 1 || got[0].TotalModules != 2 || got[0].Percent != 50 {
		t.Fatalf("summary = %+v", got[0])
	}

	other, err := e.svc.Dashboard(ctx, e.other)
	if err != nil || len(other) != 0 {
		t.Fatalf("unassigned dashboard = %+v, %v", other, err)
	}
}

func TestAssignCourseIsManagerOnly(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.AssignCourse(context.Background(), e.learner, academy.CourseAssignment{CourseID: e.course.ID, UserID: e.learner.ID}, t0)
	if academy.KindOf(err) != academy.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
	_, err = e.svc.AssignCourse(context.Background(), e.manager, academy.CourseAssignment{CourseID: e.course.ID, UserID: "ghost"}, t0)
	if academy.KindOf(err) != academy.KindNotFound {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestModuleDetailGatesAndRecomputes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.ModuleDetail(ctx, e.learner, "induction", "final", t0)
	if academy.KindOf(err) != academy.KindPermissionDenied || academy.CodeOf(err) != CodeModuleLocked {
		t.Fatalf("locked err = %v", err)
	}

	if _, err := e.svc.CompleteLesson(ctx, e.learner, e.lessons[0].ID, t0); err != nil {
		t.Fatal(err)
	}
	view, err := e.svc.ModuleDetail(ctx, e.learner, "induction", "intro", t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Lessons) != 2 || view.Lessons[0].Progress == nil || view.Lessons[1].Progress != nil {
		t.Fatalf("lessons = %+v", view.Lessons)
	}
	if view.LessonPercent != 50 || view.Progress.Score != 50 || view.Progress.Status != academy.StatusInProgress {
		t.Fatalf("view = %+v", view)
	}

	cv, err := e.svc.CourseDetail(ctx, e.learner, "induction")
	if err != nil {
		t.Fatal(err)
	}
	if !cv.Modules[0].CanAccess || cv.Modules[1].CanAccess || cv.Modules[1].Progress != nil {
		t.Fatalf("course view = %+v", cv.Modules)
	}
}

func TestLessonDetail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.svc.CompleteLesson(ctx, e.learner, e.lessons[1].ID, t0); err != nil {
		t.Fatal(err)
	}

	first, err := e.svc.LessonDetail(ctx, e.learner, "induction", "intro", e.lessons[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Lesson.ID != e.lessons[0].ID || first.Progress != nil || first.PrevID != 0 || first.NextID != e.lessons[1].ID {
		t.Fatalf("first = %+v", first)
	}
	second, err := e.svc.LessonDetail(ctx, e.learner, "induction", "intro", e.lessons[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Progress == nil || !second.Progress.Completed || second.PrevID != e.lessons[0].ID || second.NextID != 0 {
		t.Fatalf("second = %+v", second)
	}
	if _, err := e.store.GetModuleProgress(ctx, e.learner.ID, e.intro.ID); err != nil {
		t.Fatalf("completion should have recorded module progress: %v", err)
	}

	locked, err := e.store.PutLesson(ctx, academy.Lesson{ModuleID: e.final.ID, Title: "Rules", Order: 1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.svc.LessonDetail(ctx, e.learner, "induction", "final", locked.ID)
	if academy.CodeOf(err) != CodeModuleLocked {
		t.Fatalf("locked err = %v", err)
	}
	// a lesson is only reachable through its own module
	_, err = e.svc.LessonDetail(ctx, e.learner, "induction", "intro", locked.ID)
	if academy.KindOf(err) != academy.KindNotFound {
		t.Fatalf("foreign lesson err = %v", err)
	}
	_, err = e.svc.LessonDetail(ctx, e.learner, "induction", "intro", 9999)
	if academy.KindOf(err) != academy.KindNotFound {
		t.Fatalf("missing lesson err = %v", err)
	}
}

func TestInactiveCourseIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.course
	c.IsActive = false
	if _, err := e.store.PutCourse(ctx, c); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.CourseDetail(ctx, e.learner, "induction"); academy.KindOf(err) != academy.KindNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestQuizFormHidesAnswersAndReportsGap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	form, err := e.svc.QuizForm(ctx, e.learner, "induction", "intro")
	if err != nil {
		t.Fatal(err)
	}
	if len(form.Questions) != 2 || len(form.Questions[0].Choices) != 2 {
		t.Fatalf("form = %+v", form)
	}

	if _, err := e.store.DeleteQuestions(ctx, e.intro.ID); err != nil {
		t.Fatal(err)
	}
	_, err = e.svc.QuizForm(ctx, e.learner, "induction", "intro")
	if academy.KindOf(err) != academy.KindConfigurationGap || academy.CodeOf(err) != CodeNoQuestions {
		t.Fatalf("err = %v", err)
	}
	_, err = e.svc.SubmitQuiz(ctx, e.learner, "induction", "intro", grading.Submission{}, t0)
	if academy.KindOf(err) != academy.KindConfigurationGap {
		t.Fatalf("submit err = %v", err)
	}
}

func TestSubmitWithoutAnswerSetChangesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.SubmitQuiz(ctx, e.learner, "induction", "intro", nil, t0)
	if academy.KindOf(err) != academy.KindValidation {
		t.Fatalf("quiz err = %v", err)
	}
	if _, err := e.store.GetModuleProgress(ctx, e.learner.ID, e.intro.ID); !errors.Is(err, academy.ErrNotFound) {
		t.Fatalf("quiz progress err = %v", err)
	}

	passIntro(t, e, e.learner)
	_, err = e.svc.SubmitFinalTest(ctx, e.learner, "induction", "final", nil, t0)
	if academy.KindOf(err) != academy.KindValidation {
		t.Fatalf("final test err = %v", err)
	}
	subs, err := e.store.ListSubmissions(ctx, academy.SubmissionListOpts{})
	if err != nil || len(subs) != 0 {
		t.Fatalf("submissions = %+v, %v", subs, err)
	}
	if _, err := e.store.GetModuleProgress(ctx, e.learner.ID, e.final.ID); !errors.Is(err, academy.ErrNotFound) {
		t.Fatalf("final progress err = %v", err)
	}

	// a present set with a question left out is graded, the gap counts as wrong
	partial := grading.Submission{e.introQ[0].ID: strconv.FormatInt(e.introQ[0].Choices[1].ID, 10)}
	out, err := e.svc.SubmitQuiz(ctx, e.other, "induction", "intro", partial, t0)
	if err != nil {
		t.Fatal(err)
	}
	if out.ScorePercent != 50 || out.Total != 2 {
		t.Fatalf("partial = %+v", out)
	}
}

func TestSubmitQuizBestScoreAndCertificate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := e.svc.SubmitQuiz(ctx, e.learner, "induction", "intro", answer(e.introQ, 1), t0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Passed || out.ScorePercent != 50 || out.Progress.Status != academy.StatusInProgress {
		t.Fatalf("first attempt = %+v", out)
	}
	passIntro(t, e, e.learner)
	out, err = e.svc.SubmitQuiz(ctx, e.learner, "induction", "intro", answer(e.introQ, 0), t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Passed || out.Progress.Score != 100 || out.Certificate != nil {
		t.Fatalf("worse attempt = %+v", out)
	}

	out, err = e.svc.SubmitQuiz(ctx, e.learner, "induction", "final", answer(e.finalQ, 2), t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if out.Certificate == nil || out.Certificate.Score != 100 {
		t.Fatalf("final = %+v", out)
	}
	if !strings.HasPrefix(out.Certificate.CertificateNumber, "ACAD-") {
		t.Fatalf("number = %s", out.Certificate.CertificateNumber)
	}

	again, err := e.svc.SubmitQuiz(ctx, e.learner, "induction", "final", answer(e.finalQ, 2), t0.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if again.Certificate == nil || again.Certificate.ID != out.Certificate.ID {
		t.Fatalf("certificate not reused: %+v", again.Certificate)
	}

	if len(e.mail.msgs) != 1 || e.mail.msgs[0].To[0] != "admin@example.com" {
		t.Fatalf("admin mail = %+v", e.mail.msgs)
	}
	if !strings.Contains(e.mail.msgs[0].Body, "https://academy.example/certificates/"+strconv.FormatInt(out.Certificate.ID, 10)) {
		t.Fatalf("mail body = %q", e.mail.msgs[0].Body)
	}
	if got := e.sink.types(); len(got) != 1 || got[0] != certify.EventCertificateIssued {
		t.Fatalf("events = %v", got)
	}
	if len(e.bus.events) != 1 || e.bus.events[0].Type != certify.EventCertificateIssued {
		t.Fatalf("bus = %+v", e.bus.events)
	}
}

func TestFinalTestSubmitAndReview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	passIntro(t, e, e.learner)

	rec, err := e.svc.SubmitFinalTest(ctx, e.learner, "induction", "final", answer(e.finalQ, 1), t0)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ScorePercent != 50 || rec.Submission.Reviewed || rec.Submission.IsPassed || len(rec.Submission.Answers) != 2 {
		t.Fatalf("receipt = %+v", rec)
	}
	if _, err := e.store.GetModuleProgress(ctx, e.learner.ID, e.final.ID); !errors.Is(err, academy.ErrNotFound) {
		t.Fatalf("submission touched progress: %v", err)
	}

	if len(e.mail.msgs) != 1 {
		t.Fatalf("mails = %+v", e.mail.msgs)
	}
	msg := e.mail.msgs[0]
	if msg.To[0] != "meg@example.com" || !strings.Contains(msg.Subject, "ann – Driver Induction (50%)") {
		t.Fatalf("mail = %+v", msg)
	}
	for _, want := range []string{"Score: 1 / 2 (50%)", "Selected: wrong", "Marked: INCORRECT", "Marked: CORRECT", "Explanation: Because 2"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}

	if _, err := e.svc.ListFinalTests(ctx, e.learner, academy.SubmissionListOpts{}); academy.KindOf(err) != academy.KindPermissionDenied {
		t.Fatalf("learner list err = %v", err)
	}
	rows, err := e.svc.ListFinalTests(ctx, e.manager, academy.SubmissionListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Username != "ann" || rows[0].Stats.Correct != 1 || rows[0].Stats.Incorrect != 1 {
		t.Fatalf("rows = %+v", rows)
	}

	failed, err := e.svc.ReviewFinalTest(ctx, e.manager, rec.Submission.ID, false, "try again", t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !failed.Submission.Reviewed || failed.Submission.IsPassed || failed.Progress != nil || failed.Certificate != nil {
		t.Fatalf("fail verdict = %+v", failed)
	}

	passed, err := e.svc.ReviewFinalTest(ctx, e.manager, rec.Submission.ID, true, "ok", t0.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !passed.Submission.IsPassed || passed.Submission.ReviewedBy != e.manager.ID {
		t.Fatalf("submission = %+v", passed.Submission)
	}
	if passed.Progress == nil || passed.Progress.Score != 100 || passed.Progress.Status != academy.StatusCompleted {
		t.Fatalf("progress = %+v", passed.Progress)
	}
	if passed.Certificate == nil || passed.Certificate.UserID != e.learner.ID || passed.Certificate.Score != 100 {
		t.Fatalf("certificate = %+v", passed.Certificate)
	}

	want := []string{EventFinalTestSubmitted, EventFinalTestReviewed, EventFinalTestReviewed, certify.EventCertificateIssued}
	if got := e.sink.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v", got)
	}
}

func TestFinalTestWithoutQuestionsCreatesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	passIntro(t, e, e.learner)
	if _, err := e.store.DeleteQuestions(ctx, e.final.ID); err != nil {
		t.Fatal(err)
	}
	_, err := e.svc.SubmitFinalTest(ctx, e.learner, "induction", "final", grading.Submission{}, t0)
	if academy.CodeOf(err) != CodeNoFinalTestQuestions {
		t.Fatalf("err = %v", err)
	}
	subs, err := e.store.ListSubmissions(ctx, academy.SubmissionListOpts{})
	if err != nil || len(subs) != 0 {
		t.Fatalf("submissions = %+v, %v", subs, err)
	}
}

func TestSubmitFinalTestSurvivesMailFailure(t *testing.T) {
	e := newEnv(t)
	e.mail.err = errors.New("smtp down")
	passIntro(t, e, e.learner)
	if _, err := e.svc.SubmitFinalTest(context.Background(), e.learner, "induction", "final", answer(e.finalQ, 2), t0); err != nil {
		t.Fatalf("mail failure leaked: %v", err)
	}
}

func TestCertificateAccessAndImageCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	passIntro(t, e, e.learner)
	out, err := e.svc.SubmitQuiz(ctx, e.learner, "induction", "final", answer(e.finalQ, 2), t0)
	if err != nil || out.Certificate == nil {
		t.Fatalf("issue: %+v %v", out, err)
	}
	id := out.Certificate.ID

	if _, err := e.svc.Certificate(ctx, e.other, id); academy.KindOf(err) != academy.KindPermissionDenied {
		t.Fatalf("other user err = %v", err)
	}
	if _, err := e.svc.Certificate(ctx, e.manager, id); err != nil {
		t.Fatalf("manager: %v", err)
	}

	img, err := e.svc.CertificateImage(ctx, e.learner, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != "png:"+out.Certificate.CertificateNumber {
		t.Fatalf("image = %q", img)
	}
	if _, err := e.svc.CertificateImage(ctx, e.learner, id); err != nil {
		t.Fatal(err)
	}
	if e.renderer.calls != 1 {
		t.Fatalf("renderer calls = %d, want cached", e.renderer.calls)
	}

	list, err := e.svc.ListCertificates(ctx, e.manager)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestProgressMatrixCoversLearners(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	passIntro(t, e, e.learner)

	if _, err := e.svc.ProgressMatrix(ctx, e.learner); academy.KindOf(err) != academy.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
	cells, err := e.svc.ProgressMatrix(ctx, e.manager)
	if err != nil {
		t.Fatal(err)
	}
	// two learners x two modules; the manager is not listed
	if len(cells) != 4 {
		t.Fatalf("cells = %+v", cells)
	}
	first := cells[0]
	if first.Username != "ann" || first.ModuleID != e.intro.ID || !first.Passed || first.Score == nil || *first.Score != 100 {
		t.Fatalf("first cell = %+v", first)
	}
	last := cells[3]
	if last.Username != "bob" || last.Status != academy.StatusNotStarted || last.Score != nil {
		t.Fatalf("last cell = %+v", last)
	}
}

func TestImportQuestions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	raw := []byte(`[{"text":"New?","order":1,"choices":[{"text":"yes","is_correct":true},{"text":"no"}]}]`)

	if _, err := e.svc.ImportQuestions(ctx, e.learner, e.intro.ID, true, raw); academy.KindOf(err) != academy.KindPermissionDenied {
		t.Fatalf("err = %v", err)
	}
	res, err := e.svc.ImportQuestions(ctx, e.manager, e.intro.ID, true, raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Questions != 1 || res.Choices != 2 {
		t.Fatalf("result = %+v", res)
	}
	qs, err := e.store.ListQuestions(ctx, e.intro.ID)
	if err != nil || len(qs) != 1 || qs[0].Text != "New?" {
		t.Fatalf("questions = %+v, %v", qs, err)
	}
}
