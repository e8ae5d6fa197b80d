package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	authmw "github.com/mind-engage/mindengage-academy/internal/auth/middleware"
	"github.com/mind-engage/mindengage-academy/internal/grading"
	"github.com/mind-engage/mindengage-academy/internal/learning"
	"github.com/mind-engage/mindengage-academy/internal/logger"
)

const maxImportBytes = 10 << 20

// Handlers adapts learning.Service to HTTP. Routes are mounted by NewRouter.
type Handlers struct {
	svc *learning.Service
	log *logger.Logger
	now func() time.Time
}

func NewHandlers(svc *learning.Service, log *logger.Logger, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{svc: svc, log: log, now: now}
}

// actor returns the authenticated user or answers 401.
func (h *Handlers) actor(w http.ResponseWriter, r *http.Request) (academy.User, bool) {
	u, ok := authmw.UserFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
	}
	return u, ok
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// GET /courses
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Dashboard(r.Context(), u)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

// GET /courses/{courseSlug}
func (h *Handlers) CourseDetail(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.svc.CourseDetail(r.Context(), u, chi.URLParam(r, "courseSlug"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /courses/{courseSlug}/modules/{moduleSlug}
func (h *Handlers) ModuleDetail(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ModuleDetail(r.Context(), u, chi.URLParam(r, "courseSlug"), chi.URLParam(r, "moduleSlug"), h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /courses/{courseSlug}/modules/{moduleSlug}/lessons/{lessonID}
func (h *Handlers) LessonDetail(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "lessonID")
	if !ok {
		return
	}
	out, err := h.svc.LessonDetail(r.Context(), u, chi.URLParam(r, "courseSlug"), chi.URLParam(r, "moduleSlug"), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /lessons/{lessonID}/complete
func (h *Handlers) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "lessonID")
	if !ok {
		return
	}
	out, err := h.svc.CompleteLesson(r.Context(), u, id, h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"completion": out,
		"next":       fmt.Sprintf("/courses/%s/modules/%s", out.Course.Slug, out.Module.Slug),
	})
}

// GET /courses/{courseSlug}/modules/{moduleSlug}/quiz
func (h *Handlers) QuizForm(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.svc.QuizForm(r.Context(), u, chi.URLParam(r, "courseSlug"), chi.URLParam(r, "moduleSlug"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /courses/{courseSlug}/modules/{moduleSlug}/quiz
func (h *Handlers) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	answers, err := readAnswers(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	out, err := h.svc.SubmitQuiz(r.Context(), u, chi.URLParam(r, "courseSlug"), chi.URLParam(r, "moduleSlug"), answers, h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /courses/{courseSlug}/modules/{moduleSlug}/final-test
func (h *Handlers) SubmitFinalTest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	answers, err := readAnswers(r)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	out, err := h.svc.SubmitFinalTest(r.Context(), u, chi.URLParam(r, "courseSlug"), chi.URLParam(r, "moduleSlug"), answers, h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// readAnswers accepts form posts (question_<id>=<choice id>) or a JSON body
// {"answers": {"<id>": <choice id>}}. An empty form, an empty body or a body
// without "answers" is a missing answer set and is rejected. Choice ids that are
// not integers stay in the set and are marked as no selection.
func readAnswers(r *http.Request) (grading.Submission, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, academy.Invalid("malformed form body")
		}
		if len(r.PostForm) == 0 {
			return nil, academy.Invalid("answers are required")
		}
		form := map[string]string{}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				form[k] = v[0]
			}
		}
		return grading.ParseSubmission(form), nil
	}

	var req struct {
		Answers map[string]json.RawMessage `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, academy.Invalid("answers are required")
		}
		return nil, academy.Invalid("malformed JSON body")
	}
	if req.Answers == nil {
		return nil, academy.Invalid("answers are required")
	}
	form := make(map[string]string, len(req.Answers))
	for k, raw := range req.Answers {
		form[k] = choiceText(raw)
	}
	return grading.ParseSubmission(form), nil
}

// choiceText returns a JSON number or string as text; anything else becomes "".
func choiceText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// GET /certificates/{certificateID}
func (h *Handlers) Certificate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "certificateID")
	if !ok {
		return
	}
	cert, err := h.svc.Certificate(r.Context(), u, id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// GET /certificates/{certificateID}/image
func (h *Handlers) CertificateImage(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "certificateID")
	if !ok {
		return
	}
	png, err := h.svc.CertificateImage(r.Context(), u, id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// GET /manager/final-tests?user_id=&module_id=&limit=&offset=
func (h *Handlers) ListFinalTests(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := academy.SubmissionListOpts{UserID: strings.TrimSpace(q.Get("user_id")), Limit: 50}
	if v, err := strconv.ParseInt(q.Get("module_id"), 10, 64); err == nil && v > 0 {
		opts.ModuleID = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		if v > 200 {
			v = 200
		}
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		opts.Offset = v
	}
	rows, err := h.svc.ListFinalTests(r.Context(), u, opts)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": rows})
}

// POST /manager/final-tests/{submissionID}/review  {"passed": true, "feedback": "..."}
func (h *Handlers) ReviewFinalTest(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "submissionID")
	if !ok {
		return
	}
	var req struct {
		Passed   *bool  `json:"passed"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Passed == nil {
		writeErr(w, http.StatusBadRequest, "passed is required")
		return
	}
	out, err := h.svc.ReviewFinalTest(r.Context(), u, id, *req.Passed, req.Feedback, h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /manager/progress
func (h *Handlers) ProgressMatrix(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	cells, err := h.svc.ProgressMatrix(r.Context(), u)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": cells})
}

// GET /manager/certificates
func (h *Handlers) ListCertificates(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	certs, err := h.svc.ListCertificates(r.Context(), u)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

// POST /manager/modules/{moduleID}/questions/import?delete_existing=1
func (h *Handlers) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "moduleID")
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeErr(w, http.StatusRequestEntityTooLarge, "import too large")
		return
	}
	del, _ := strconv.ParseBool(r.URL.Query().Get("delete_existing"))
	res, err := h.svc.ImportQuestions(r.Context(), u, id, del, raw)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /manager/assignments  {"course_id": 1, "user_id": "..."} or {"course_id": 1, "group_id": "..."}
func (h *Handlers) AssignCourse(w http.ResponseWriter, r *http.Request) {
	u, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		CourseID int64  `json:"course_id"`
		UserID   string `json:"user_id"`
		GroupID  string `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourseID <= 0 {
		writeErr(w, http.StatusBadRequest, "course_id is required")
		return
	}
	a, err := h.svc.AssignCourse(r.Context(), u, academy.CourseAssignment{
		CourseID: req.CourseID,
		UserID:   strings.TrimSpace(req.UserID),
		GroupID:  strings.TrimSpace(req.GroupID),
	}, h.now())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
