package academy

import (
	"context"
	"time"
)

type SubmissionListOpts struct {
	UserID   string // optional
	ModuleID int64  // optional
	Limit    int
	Offset   int
}

// ReviewInput is the manager's verdict on a final test submission.
type ReviewInput struct {
	Passed     bool
	Feedback   string
	ReviewedBy string
	ReviewedAt time.Time
}

// Store is the persistence boundary of the academy. Lookups that match nothing
// return an error wrapping ErrNotFound.
type Store interface {
	// catalog
	PutCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (Course, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]Course, error) // (order, title)

	PutModule(ctx context.Context, m Module) (Module, error)
	GetModule(ctx context.Context, id int64) (Module, error)
	GetModuleBySlug(ctx context.Context, courseID int64, slug string) (Module, error)
	ListModules(ctx context.Context, courseID int64) ([]Module, error) // (order, id)

	PutLesson(ctx context.Context, l Lesson) (Lesson, error)
	GetLesson(ctx context.Context, id int64) (Lesson, error)
	ListLessons(ctx context.Context, moduleID int64) ([]Lesson, error) // (order, id)

	// PutQuestion inserts the question and its choices; choices keep slice order.
	PutQuestion(ctx context.Context, q Question) (Question, error)
	ListQuestions(ctx context.Context, moduleID int64) ([]Question, error) // (order, id), choices by id
	DeleteQuestions(ctx context.Context, moduleID int64) (int, error)

	// progress
	GetLessonProgress(ctx context.Context, userID string, lessonID int64) (LessonProgress, error)
	// CompleteLesson upserts the (user, lesson) row as completed. completed_at keeps its first value.
	CompleteLesson(ctx context.Context, userID string, lessonID int64, now time.Time) (LessonProgress, error)
	CountCompletedLessons(ctx context.Context, userID string, moduleID int64) (int, error)

	GetModuleProgress(ctx context.Context, userID string, moduleID int64) (ModuleProgress, error)
	ListModuleProgress(ctx context.Context, userID string) ([]ModuleProgress, error)
	// UpdateModuleProgress atomically creates the (user, module) row with defaults if it is
	// missing, applies fn to it and persists the result. fn must not call back into the store.
	UpdateModuleProgress(ctx context.Context, userID string, moduleID int64, fn func(*ModuleProgress) error) (ModuleProgress, error)
	// UpdateModuleProgressFromLessons is UpdateModuleProgress with the user's completed
	// lesson count and the module's lesson total read under the same lock.
	UpdateModuleProgressFromLessons(ctx context.Context, userID string, moduleID int64, fn func(p *ModuleProgress, done, total int) error) (ModuleProgress, error)

	// certificates
	GetCertificate(ctx context.Context, id int64) (Certificate, error)
	FindCertificate(ctx context.Context, userID string, moduleID int64) (Certificate, error)
	// CreateCertificate inserts c unless (user, module) already has one, in which case the
	// existing row is returned with created=false.
	CreateCertificate(ctx context.Context, c Certificate) (cert Certificate, created bool, err error)
	ListCertificates(ctx context.Context) ([]Certificate, error) // newest first

	// final tests
	CreateSubmission(ctx context.Context, s FinalTestSubmission) (FinalTestSubmission, error)
	GetSubmission(ctx context.Context, id int64) (FinalTestSubmission, error)
	ListSubmissions(ctx context.Context, opts SubmissionListOpts) ([]FinalTestSubmission, error) // newest first
	ReviewSubmission(ctx context.Context, id int64, in ReviewInput) (FinalTestSubmission, error)

	// assignments
	AssignCourse(ctx context.Context, a CourseAssignment) (CourseAssignment, error)
	AssignedCourseIDs(ctx context.Context, userID string, groupIDs []string) ([]int64, error)

	// users (read-only)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, roles ...string) ([]User, error) // by username
}
