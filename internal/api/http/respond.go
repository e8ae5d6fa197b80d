package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/learning"
	"github.com/mind-engage/mindengage-academy/internal/logger"
)

// Learner-facing wording for errors answered with a redirect.
var warnings = map[string]string{
	learning.CodeModuleLocked:         "Please complete the previous modules first.",
	learning.CodeNoQuestions:          "No questions have been set up for this module yet.",
	learning.CodeNoFinalTestQuestions: "Final test questions have not been set up yet.",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a service error to a response. A locked module redirects to its
// course and a configuration gap to its module, each with a warning body.
func fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := academy.CodeOf(err)
	switch academy.KindOf(err) {
	case academy.KindNotFound:
		writeErr(w, http.StatusNotFound, err.Error())
	case academy.KindValidation:
		writeErr(w, http.StatusBadRequest, err.Error())
	case academy.KindPermissionDenied:
		if code == learning.CodeModuleLocked {
			if loc := coursePath(r); loc != "" {
				redirect(w, loc, code, err)
				return
			}
		}
		writeErr(w, http.StatusForbidden, err.Error())
	case academy.KindConfigurationGap:
		if loc := modulePath(r); loc != "" {
			redirect(w, loc, code, err)
			return
		}
		writeErr(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func redirect(w http.ResponseWriter, loc, code string, err error) {
	msg, ok := warnings[code]
	if !ok {
		msg = err.Error()
	}
	w.Header().Set("Location", loc)
	writeJSON(w, http.StatusSeeOther, map[string]string{"warning": msg, "code": code, "location": loc})
}

func coursePath(r *http.Request) string {
	c := chi.URLParam(r, "courseSlug")
	if c == "" {
		return ""
	}
	return "/courses/" + url.PathEscape(c)
}

func modulePath(r *http.Request) string {
	c, m := coursePath(r), chi.URLParam(r, "moduleSlug")
	if c == "" || m == "" {
		return ""
	}
	return c + "/modules/" + url.PathEscape(m)
}
