package academy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/db"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(dbh *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: dbh, driver: driver}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func unixOrNil(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(format, args...)
	}
	return err
}

// ---- catalog ----

func (s *SQLStore) PutCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == 0 {
		err := s.db.QueryRowContext(ctx, `INSERT INTO courses (title,slug,description,sort_order,is_active)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			c.Title, c.Slug, c.Description, c.Order, c.IsActive).Scan(&c.ID)
		return c, err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE courses SET title=$1, slug=$2, description=$3, sort_order=$4, is_active=$5 WHERE id=$6`,
		c.Title, c.Slug, c.Description, c.Order, c.IsActive, c.ID)
	return c, err
}

const courseCols = `id,title,slug,description,sort_order,is_active`

func scanCourse(sc interface{ Scan(...any) error }) (Course, error) {
	var c Course
	err := sc.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Order, &c.IsActive)
	return c, err
}

func (s *SQLStore) GetCourse(ctx context.Context, id int64) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE id=$1`, id))
	if err != nil {
		return Course{}, notFound(err, "course %d", id)
	}
	return c, nil
}

func (s *SQLStore) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE slug=$1`, slug))
	if err != nil {
		return Course{}, notFound(err, "course %q", slug)
	}
	return c, nil
}

func (s *SQLStore) ListCourses(ctx context.Context, activeOnly bool) ([]Course, error) {
	q := `SELECT ` + courseCols + ` FROM courses`
	var args []any
	if activeOnly {
		q += ` WHERE is_active=$1`
		args = append(args, true)
	}
	q += ` ORDER BY sort_order, title`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const moduleCols = `id,course_id,title,slug,description,sort_order,min_score_to_pass,is_mandatory,is_final_assessment`

func scanModule(sc interface{ Scan(...any) error }) (Module, error) {
	var m Module
	err := sc.Scan(&m.ID, &m.CourseID, &m.Title, &m.Slug, &m.Description, &m.Order, &m.MinScoreToPass, &m.IsMandatory, &m.IsFinalAssessment)
	return m, err
}

func (s *SQLStore) PutModule(ctx context.Context, m Module) (Module, error) {
	if _, err := s.GetCourse(ctx, m.CourseID); err != nil {
		return Module{}, err
	}
	if m.ID == 0 {
		err := s.db.QueryRowContext(ctx, `INSERT INTO modules (course_id,title,slug,description,sort_order,min_score_to_pass,is_mandatory,is_final_assessment)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			m.CourseID, m.Title, m.Slug, m.Description, m.Order, m.MinScoreToPass, m.IsMandatory, m.IsFinalAssessment).Scan(&m.ID)
		return m, err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE modules SET course_id=$1, title=$2, slug=$3, description=$4, sort_order=$5,
		min_score_to_pass=$6, is_mandatory=$7, is_final_assessment=$8 WHERE id=$9`,
		m.CourseID, m.Title, m.Slug, m.Description, m.Order, m.MinScoreToPass, m.IsMandatory, m.IsFinalAssessment, m.ID)
	return m, err
}

func (s *SQLStore) GetModule(ctx context.Context, id int64) (Module, error) {
	m, err := scanModule(s.db.QueryRowContext(ctx, `SELECT `+moduleCols+` FROM modules WHERE id=$1`, id))
	if err != nil {
		return Module{}, notFound(err, "module %d", id)
	}
	return m, nil
}

func (s *SQLStore) GetModuleBySlug(ctx context.Context, courseID int64, slug string) (Module, error) {
	m, err := scanModule(s.db.QueryRowContext(ctx, `SELECT `+moduleCols+` FROM modules WHERE course_id=$1 AND slug=$2`, courseID, slug))
	if err != nil {
		return Module{}, notFound(err, "module %q", slug)
	}
	return m, nil
}

func (s *SQLStore) ListModules(ctx context.Context, courseID int64) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+moduleCols+` FROM modules WHERE course_id=$1 ORDER BY sort_order, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const lessonCols = `id,module_id,title,sort_order,content,video_url,image_url`

func scanLesson(sc interface{ Scan(...any) error }) (Lesson, error) {
	var l Lesson
	err := sc.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Order, &l.Content, &l.VideoURL, &l.ImageURL)
	return l, err
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) (Lesson, error) {
	if _, err := s.GetModule(ctx, l.ModuleID); err != nil {
		return Lesson{}, err
	}
	if l.ID == 0 {
		err := s.db.QueryRowContext(ctx, `INSERT INTO lessons (module_id,title,sort_order,content,video_url,image_url)
			VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			l.ModuleID, l.Title, l.Order, l.Content, l.VideoURL, l.ImageURL).Scan(&l.ID)
		return l, err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE lessons SET module_id=$1, title=$2, sort_order=$3, content=$4, video_url=$5, image_url=$6 WHERE id=$7`,
		l.ModuleID, l.Title, l.Order, l.Content, l.VideoURL, l.ImageURL, l.ID)
	return l, err
}

func (s *SQLStore) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	l, err := scanLesson(s.db.QueryRowContext(ctx, `SELECT `+lessonCols+` FROM lessons WHERE id=$1`, id))
	if err != nil {
		return Lesson{}, notFound(err, "lesson %d", id)
	}
	return l, nil
}

func (s *SQLStore) ListLessons(ctx context.Context, moduleID int64) ([]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+lessonCols+` FROM lessons WHERE module_id=$1 ORDER BY sort_order, id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	if _, err := s.GetModule(ctx, q.ModuleID); err != nil {
		return Question{}, err
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `INSERT INTO questions (module_id,text,sort_order,explanation)
			VALUES ($1,$2,$3,$4) RETURNING id`, q.ModuleID, q.Text, q.Order, q.Explanation).Scan(&q.ID); err != nil {
			return err
		}
		choices := make([]Choice, len(q.Choices))
		for i, c := range q.Choices {
			c.QuestionID = q.ID
			if err := tx.QueryRowContext(ctx, `INSERT INTO choices (question_id,text,is_correct) VALUES ($1,$2,$3) RETURNING id`,
				c.QuestionID, c.Text, c.IsCorrect).Scan(&c.ID); err != nil {
				return err
			}
			choices[i] = c
		}
		q.Choices = choices
		return nil
	})
	if err != nil {
		return Question{}, fmt.Errorf("put question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, moduleID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,module_id,text,sort_order,explanation FROM questions
		WHERE module_id=$1 ORDER BY sort_order, id`, moduleID)
	if err != nil {
		return nil, err
	}
	out := []Question{}
	index := map[int64]int{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ModuleID, &q.Text, &q.Order, &q.Explanation); err != nil {
			rows.Close()
			return nil, err
		}
		q.Choices = []Choice{}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	crows, err := s.db.QueryContext(ctx, `SELECT c.id, c.question_id, c.text, c.is_correct
		FROM choices c JOIN questions q ON q.id = c.question_id
		WHERE q.module_id=$1 ORDER BY c.id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var c Choice
		if err := crows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[c.QuestionID]; ok {
			out[i].Choices = append(out[i].Choices, c)
		}
	}
	return out, crows.Err()
}

func (s *SQLStore) DeleteQuestions(ctx context.Context, moduleID int64) (int, error) {
	var n int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE question_id IN (SELECT id FROM questions WHERE module_id=$1)`, moduleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE module_id=$1`, moduleID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

// ---- progress ----

func (s *SQLStore) GetLessonProgress(ctx context.Context, userID string, lessonID int64) (LessonProgress, error) {
	lp := LessonProgress{UserID: userID, LessonID: lessonID}
	var at sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT completed, completed_at FROM lesson_progress WHERE user_id=$1 AND lesson_id=$2`,
		userID, lessonID).Scan(&lp.Completed, &at)
	if err != nil {
		return LessonProgress{}, notFound(err, "lesson progress %s/%d", userID, lessonID)
	}
	lp.CompletedAt = timePtr(at)
	return lp, nil
}

func (s *SQLStore) CompleteLesson(ctx context.Context, userID string, lessonID int64, now time.Time) (LessonProgress, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return LessonProgress{}, err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lesson_progress (user_id, lesson_id, completed, completed_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed=EXCLUDED.completed,
			completed_at=COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at)`,
		userID, lessonID, true, now.Unix())
	if err != nil {
		return LessonProgress{}, fmt.Errorf("complete lesson: %w", err)
	}
	return s.GetLessonProgress(ctx, userID, lessonID)
}

func (s *SQLStore) CountCompletedLessons(ctx context.Context, userID string, moduleID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id
		WHERE lp.user_id=$1 AND l.module_id=$2 AND lp.completed=$3`, userID, moduleID, true).Scan(&n)
	return n, err
}

const progressCols = `user_id,module_id,status,score,completed_at,last_attempt_at`

func scanProgress(sc interface{ Scan(...any) error }) (ModuleProgress, error) {
	var p ModuleProgress
	var status string
	var done, last sql.NullInt64
	if err := sc.Scan(&p.UserID, &p.ModuleID, &status, &p.Score, &done, &last); err != nil {
		return ModuleProgress{}, err
	}
	p.Status = Status(status)
	p.CompletedAt = timePtr(done)
	p.LastAttemptAt = timePtr(last)
	return p, nil
}

func (s *SQLStore) GetModuleProgress(ctx context.Context, userID string, moduleID int64) (ModuleProgress, error) {
	p, err := scanProgress(s.db.QueryRowContext(ctx, `SELECT `+progressCols+` FROM module_progress WHERE user_id=$1 AND module_id=$2`,
		userID, moduleID))
	if err != nil {
		return ModuleProgress{}, notFound(err, "module progress %s/%d", userID, moduleID)
	}
	return p, nil
}

func (s *SQLStore) ListModuleProgress(ctx context.Context, userID string) ([]ModuleProgress, error) {
	q := `SELECT ` + progressCols + ` FROM module_progress`
	var args []any
	if userID != "" {
		q += ` WHERE user_id=$1`
		args = append(args, userID)
	}
	q += ` ORDER BY user_id, module_id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ModuleProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateModuleProgress(ctx context.Context, userID string, moduleID int64, fn func(*ModuleProgress) error) (ModuleProgress, error) {
	return s.updateProgress(ctx, userID, moduleID, func(_ *sql.Tx, p *ModuleProgress) error {
		return fn(p)
	})
}

func (s *SQLStore) UpdateModuleProgressFromLessons(ctx context.Context, userID string, moduleID int64, fn func(p *ModuleProgress, done, total int) error) (ModuleProgress, error) {
	return s.updateProgress(ctx, userID, moduleID, func(tx *sql.Tx, p *ModuleProgress) error {
		var done, total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE module_id=$1`, moduleID).Scan(&total); err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id
			WHERE lp.user_id=$1 AND l.module_id=$2 AND lp.completed=$3`, userID, moduleID, true).Scan(&done); err != nil {
			return fmt.Errorf("count completed lessons: %w", err)
		}
		return fn(p, done, total)
	})
}

// updateProgress creates the row if missing, locks it and hands it to fn inside one
// transaction. Counts fn reads through tx see every completion committed before the lock.
func (s *SQLStore) updateProgress(ctx context.Context, userID string, moduleID int64, fn func(*sql.Tx, *ModuleProgress) error) (ModuleProgress, error) {
	if _, err := s.GetModule(ctx, moduleID); err != nil {
		return ModuleProgress{}, err
	}
	var out ModuleProgress
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO module_progress (user_id, module_id, status, score)
			VALUES ($1,$2,$3,0) ON CONFLICT (user_id, module_id) DO NOTHING`,
			userID, moduleID, string(StatusNotStarted)); err != nil {
			return err
		}
		sel := `SELECT ` + progressCols + ` FROM module_progress WHERE user_id=$1 AND module_id=$2`
		if s.driver == "postgres" {
			sel += ` FOR UPDATE`
		}
		p, err := scanProgress(tx.QueryRowContext(ctx, sel, userID, moduleID))
		if err != nil {
			return err
		}
		if err := fn(tx, &p); err != nil {
			return err
		}
		p.UserID, p.ModuleID = userID, moduleID
		if _, err := tx.ExecContext(ctx, `UPDATE module_progress
			SET status=$1, score=$2, completed_at=$3, last_attempt_at=$4
			WHERE user_id=$5 AND module_id=$6`,
			string(p.Status), p.Score, unixOrNil(p.CompletedAt), unixOrNil(p.LastAttemptAt), userID, moduleID); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return ModuleProgress{}, err
		}
		return ModuleProgress{}, fmt.Errorf("update module progress: %w", err)
	}
	return out, nil
}

// ---- certificates ----

const certCols = `id,user_id,course_id,module_id,score,certificate_number,issued_at`

func scanCert(sc interface{ Scan(...any) error }) (Certificate, error) {
	var c Certificate
	var issued int64
	if err := sc.Scan(&c.ID, &c.UserID, &c.CourseID, &c.ModuleID, &c.Score, &c.CertificateNumber, &issued); err != nil {
		return Certificate{}, err
	}
	c.IssuedAt = time.Unix(issued, 0).UTC()
	return c, nil
}

func (s *SQLStore) GetCertificate(ctx context.Context, id int64) (Certificate, error) {
	c, err := scanCert(s.db.QueryRowContext(ctx, `SELECT `+certCols+` FROM certificates WHERE id=$1`, id))
	if err != nil {
		return Certificate{}, notFound(err, "certificate %d", id)
	}
	return c, nil
}

func (s *SQLStore) FindCertificate(ctx context.Context, userID string, moduleID int64) (Certificate, error) {
	c, err := scanCert(s.db.QueryRowContext(ctx, `SELECT `+certCols+` FROM certificates WHERE user_id=$1 AND module_id=$2`, userID, moduleID))
	if err != nil {
		return Certificate{}, notFound(err, "certificate %s/%d", userID, moduleID)
	}
	return c, nil
}

func (s *SQLStore) CreateCertificate(ctx context.Context, c Certificate) (Certificate, bool, error) {
	err := s.db.QueryRowContext(ctx, `INSERT INTO certificates (user_id,course_id,module_id,score,certificate_number,issued_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, module_id) DO NOTHING
		RETURNING id`,
		c.UserID, c.CourseID, c.ModuleID, c.Score, c.CertificateNumber, c.IssuedAt.Unix()).Scan(&c.ID)
	switch {
	case err == nil:
		c.IssuedAt = time.Unix(c.IssuedAt.Unix(), 0).UTC()
		return c, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// lost the race (or already issued): hand back the winner
		existing, ferr := s.FindCertificate(ctx, c.UserID, c.ModuleID)
		return existing, false, ferr
	default:
		return Certificate{}, false, fmt.Errorf("create certificate: %w", err)
	}
}

func (s *SQLStore) ListCertificates(ctx context.Context) ([]Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+certCols+` FROM certificates ORDER BY issued_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Certificate{}
	for rows.Next() {
		c, err := scanCert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- final tests ----

const submissionCols = `id,user_id,module_id,submitted_at,answers_json,reviewed,is_passed,feedback,reviewed_by,reviewed_at`

func scanSubmission(sc interface{ Scan(...any) error }) (FinalTestSubmission, error) {
	var s FinalTestSubmission
	var submitted int64
	var answers string
	var reviewedAt sql.NullInt64
	if err := sc.Scan(&s.ID, &s.UserID, &s.ModuleID, &submitted, &answers, &s.Reviewed, &s.IsPassed, &s.Feedback, &s.ReviewedBy, &reviewedAt); err != nil {
		return FinalTestSubmission{}, err
	}
	s.SubmittedAt = time.Unix(submitted, 0).UTC()
	s.ReviewedAt = timePtr(reviewedAt)
	if err := json.Unmarshal([]byte(answers), &s.Answers); err != nil {
		return FinalTestSubmission{}, fmt.Errorf("decode answers of submission %d: %w", s.ID, err)
	}
	return s, nil
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub FinalTestSubmission) (FinalTestSubmission, error) {
	if _, err := s.GetModule(ctx, sub.ModuleID); err != nil {
		return FinalTestSubmission{}, err
	}
	if sub.Answers == nil {
		sub.Answers = []AnswerSnapshot{}
	}
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return FinalTestSubmission{}, err
	}
	err = s.db.QueryRowContext(ctx, `INSERT INTO final_test_submissions (user_id,module_id,submitted_at,answers_json,reviewed,is_passed)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		sub.UserID, sub.ModuleID, sub.SubmittedAt.Unix(), string(aj), false, false).Scan(&sub.ID)
	if err != nil {
		return FinalTestSubmission{}, fmt.Errorf("create submission: %w", err)
	}
	sub.SubmittedAt = time.Unix(sub.SubmittedAt.Unix(), 0).UTC()
	return sub, nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, id int64) (FinalTestSubmission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM final_test_submissions WHERE id=$1`, id))
	if err != nil {
		return FinalTestSubmission{}, notFound(err, "final test submission %d", id)
	}
	return sub, nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, opts SubmissionListOpts) ([]FinalTestSubmission, error) {
	var where []string
	var args []any
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if opts.ModuleID != 0 {
		args = append(args, opts.ModuleID)
		where = append(where, fmt.Sprintf("module_id=$%d", len(args)))
	}
	q := `SELECT ` + submissionCols + ` FROM final_test_submissions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY submitted_at DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FinalTestSubmission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) ReviewSubmission(ctx context.Context, id int64, in ReviewInput) (FinalTestSubmission, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE final_test_submissions
		SET reviewed=$1, is_passed=$2, feedback=$3, reviewed_by=$4, reviewed_at=$5
		WHERE id=$6`, true, in.Passed, in.Feedback, in.ReviewedBy, in.ReviewedAt.Unix(), id)
	if err != nil {
		return FinalTestSubmission{}, fmt.Errorf("review submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return FinalTestSubmission{}, NotFound("final test submission %d", id)
	}
	return s.GetSubmission(ctx, id)
}

// ---- assignments ----

func (s *SQLStore) AssignCourse(ctx context.Context, a CourseAssignment) (CourseAssignment, error) {
	if (a.UserID == "") == (a.GroupID == "") {
		return CourseAssignment{}, Invalid("assignment needs exactly one of user or group")
	}
	if _, err := s.GetCourse(ctx, a.CourseID); err != nil {
		return CourseAssignment{}, err
	}
	var user, group sql.NullString
	col, owner := "user_id", a.UserID
	if a.UserID != "" {
		user = sql.NullString{String: a.UserID, Valid: true}
	} else {
		group = sql.NullString{String: a.GroupID, Valid: true}
		col, owner = "group_id", a.GroupID
	}

	// assigning twice returns the first assignment
	var existing CourseAssignment
	var at int64
	err := s.db.QueryRowContext(ctx, `SELECT id, assigned_at FROM course_assignments WHERE course_id=$1 AND `+col+`=$2 ORDER BY id LIMIT 1`,
		a.CourseID, owner).Scan(&existing.ID, &at)
	if err == nil {
		existing.CourseID, existing.UserID, existing.GroupID = a.CourseID, a.UserID, a.GroupID
		existing.AssignedAt = time.Unix(at, 0).UTC()
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CourseAssignment{}, err
	}

	err = s.db.QueryRowContext(ctx, `INSERT INTO course_assignments (course_id,user_id,group_id,assigned_at)
		VALUES ($1,$2,$3,$4) RETURNING id`, a.CourseID, user, group, a.AssignedAt.Unix()).Scan(&a.ID)
	if err != nil {
		return CourseAssignment{}, fmt.Errorf("assign course: %w", err)
	}
	a.AssignedAt = time.Unix(a.AssignedAt.Unix(), 0).UTC()
	return a, nil
}

func (s *SQLStore) AssignedCourseIDs(ctx context.Context, userID string, groupIDs []string) ([]int64, error) {
	args := []any{userID}
	q := `SELECT DISTINCT course_id FROM course_assignments WHERE user_id=$1`
	if len(groupIDs) > 0 {
		ph := make([]string, len(groupIDs))
		for i, g := range groupIDs {
			args = append(args, g)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		q += ` OR group_id IN (` + strings.Join(ph, ",") + `)`
	}
	q += ` ORDER BY course_id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- users ----

// PutUser upserts a user and replaces its group memberships. Used for seeding.
func (s *SQLStore) PutUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return Invalid("user id required")
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id,username,full_name,email,role,is_active,password_hash,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username, full_name=EXCLUDED.full_name, email=EXCLUDED.email,
				role=EXCLUDED.role, is_active=EXCLUDED.is_active, password_hash=EXCLUDED.password_hash`,
			u.ID, u.Username, u.FullName, u.Email, u.Role, u.IsActive, u.PasswordHash, time.Now().Unix()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id=$1`, u.ID); err != nil {
			return err
		}
		for _, g := range u.GroupIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_groups (user_id, group_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, u.ID, g); err != nil {
				return err
			}
		}
		return nil
	})
}

const userCols = `id,username,full_name,email,role,is_active,password_hash`

func scanUser(sc interface{ Scan(...any) error }) (User, error) {
	var u User
	err := sc.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.PasswordHash)
	return u, err
}

func (s *SQLStore) loadGroups(ctx context.Context, q queryer, u *User) error {
	rows, err := q.QueryContext(ctx, `SELECT group_id FROM user_groups WHERE user_id=$1 ORDER BY group_id`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	u.GroupIDs = nil
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return err
		}
		u.GroupIDs = append(u.GroupIDs, g)
	}
	return rows.Err()
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		return User{}, notFound(err, "user %q", id)
	}
	if err := s.loadGroups(ctx, s.db, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
	if err != nil {
		return User{}, notFound(err, "user %q", username)
	}
	if err := s.loadGroups(ctx, s.db, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) ListUsers(ctx context.Context, roles ...string) ([]User, error) {
	q := `SELECT ` + userCols + ` FROM users`
	var args []any
	if len(roles) > 0 {
		ph := make([]string, len(roles))
		for i, r := range roles {
			args = append(args, r)
			ph[i] = fmt.Sprintf("$%d", i+1)
		}
		q += ` WHERE role IN (` + strings.Join(ph, ",") + `)`
	}
	q += ` ORDER BY username`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadGroups(ctx, s.db, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
