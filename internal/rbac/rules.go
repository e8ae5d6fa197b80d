package rbac

import "github.com/mind-engage/mindengage-academy/internal/academy"

// Permissions checked by the HTTP layer.
const (
	PermCourseView      = "course:view"
	PermLessonComplete  = "lesson:complete"
	PermQuizSubmit      = "quiz:submit"
	PermFinalTestSubmit = "final_test:submit"
	PermCertificateView = "certificate:view"
	PermFinalTestReview = "final_test:review"
	PermProgressViewAll = "progress:view-all"
	PermCertificateList = "certificate:list"
	PermQuestionImport  = "question:import"
	PermCourseAssign    = "course:assign"
	PermAssetView       = "asset:view"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	academy.RoleLearner: {
		PermCourseView,
		PermLessonComplete,
		PermQuizSubmit,
		PermFinalTestSubmit,
		PermCertificateView,
		PermAssetView,
	},
	academy.RoleManager: {
		"course:*",
		"lesson:*",
		"quiz:*",
		"final_test:*",
		"certificate:*",
		PermProgressViewAll,
		PermQuestionImport,
		PermAssetView,
	},
	academy.RoleAdmin: {
		"*",
	},
}
