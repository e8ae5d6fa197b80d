package academy

import "time"

type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"is_active"`
}

type Module struct {
	ID                int64  `json:"id"`
	CourseID          int64  `json:"course_id"`
	Title             string `json:"title"`
	Slug              string `json:"slug"`
	Description       string `json:"description,omitempty"`
	Order             int    `json:"order"`
	MinScoreToPass    int    `json:"min_score_to_pass"` // percent
	IsMandatory       bool   `json:"is_mandatory"`
	IsFinalAssessment bool   `json:"is_final_assessment"`
}

// DefaultMinScoreToPass is applied to modules created without an explicit threshold.
const DefaultMinScoreToPass = 80

type Lesson struct {
	ID       int64  `json:"id"`
	ModuleID int64  `json:"module_id"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Question struct {
	ID          int64    `json:"id"`
	ModuleID    int64    `json:"module_id"`
	Text        string   `json:"text"`
	Order       int      `json:"order"`
	Explanation string   `json:"explanation,omitempty"`
	Choices     []Choice `json:"choices"`
}

// Status is the lifecycle of a learner's ModuleProgress.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type LessonProgress struct {
	UserID      string     `json:"user_id"`
	LessonID    int64      `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ModuleProgress struct {
	UserID        string     `json:"user_id"`
	ModuleID      int64      `json:"module_id"`
	Status        Status     `json:"status"`
	Score         int        `json:"score"` // best score, percent
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// NewModuleProgress is the default row created on first touch.
func NewModuleProgress(userID string, moduleID int64) ModuleProgress {
	return ModuleProgress{UserID: userID, ModuleID: moduleID, Status: StatusNotStarted}
}

// Passed reports whether the stored score meets the module threshold.
func (p ModuleProgress) Passed(minScoreToPass int) bool {
	return p.Score >= minScoreToPass
}

// AnswerSnapshot is one marked answer as persisted on a final test submission.
// The list on a submission is ordered like the module's questions.
type AnswerSnapshot struct {
	QuestionID         int64   `json:"question_id"`
	QuestionText       string  `json:"question_text"`
	SelectedChoiceID   *int64  `json:"selected_choice_id"`
	SelectedChoiceText *string `json:"selected_choice_text"`
	CorrectChoiceText  *string `json:"correct_choice_text"`
	IsCorrect          bool    `json:"is_correct"`
	Explanation        string  `json:"explanation"`
}

type FinalTestSubmission struct {
	ID          int64            `json:"id"`
	UserID      string           `json:"user_id"`
	ModuleID    int64            `json:"module_id"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Answers     []AnswerSnapshot `json:"answers"`
	Reviewed    bool             `json:"reviewed"`
	IsPassed    bool             `json:"is_passed"`
	Feedback    string           `json:"feedback,omitempty"`
	ReviewedBy  string           `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
}

type Certificate struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	CourseID          int64     `json:"course_id"`
	ModuleID          int64     `json:"module_id"`
	Score             int       `json:"score"`
	CertificateNumber string    `json:"certificate_number"`
	IssuedAt          time.Time `json:"issued_at"`
}

// CourseAssignment grants a course to exactly one of a user or a group.
type CourseAssignment struct {
	ID         int64     `json:"id"`
	CourseID   int64     `json:"course_id"`
	UserID     string    `json:"user_id,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Roles understood by the academy. Managers review final tests and see everyone's progress.
const (
	RoleLearner = "learner"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role"`
	IsActive     bool     `json:"is_active"`
	PasswordHash string   `json:"-"`
	GroupIDs     []string `json:"group_ids,omitempty"`
}

// DisplayName is the full name when known, otherwise the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// IsManager reports whether u may run manager-only operations.
func (u User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
