package learning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/certify"
	"github.com/mind-engage/mindengage-academy/internal/importer"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/notify"
	"github.com/mind-engage/mindengage-academy/internal/progress"
	"github.com/mind-engage/mindengage-academy/internal/storage"
)

// EventSink durably records domain events.
type EventSink interface {
	Record(ctx context.Context, typ, key string, data any, at time.Time) (int64, error)
}

// Renderer turns certificate display data into an image.
type Renderer interface {
	Render(v certify.View) ([]byte, error)
}

type Deps struct {
	Store    academy.Store
	Certs    *certify.Service  // default: certify.NewService(Store)
	Renderer Renderer          // optional; certificate images are unavailable without it
	Blobs    storage.BlobStore // optional cache for rendered images
	Notifier notify.Notifier   // optional
	Events   EventSink         // optional
	Log      *logger.Logger
}

// Service runs the learner and manager workflows. Every call takes the acting user
// and, for mutations, the current time.
type Service struct {
	store    academy.Store
	tracker  *progress.Tracker
	gate     *progress.Gate
	reports  *progress.Reporter
	certs    *certify.Service
	importer *importer.Importer
	renderer Renderer
	blobs    storage.BlobStore
	notifier notify.Notifier
	events   EventSink
	log      *logger.Logger
	tracer   trace.Tracer
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	certs := d.Certs
	if certs == nil {
		certs = certify.NewService(d.Store, certify.WithLogger(log))
	}
	return &Service{
		store:    d.Store,
		tracker:  progress.NewTracker(d.Store),
		gate:     progress.NewGate(d.Store),
		reports:  progress.NewReporter(d.Store),
		certs:    certs,
		importer: importer.New(d.Store),
		renderer: d.Renderer,
		blobs:    d.Blobs,
		notifier: d.Notifier,
		events:   d.Events,
		log:      log.With("service", "LearningService"),
		tracer:   otel.Tracer("github.com/mind-engage/mindengage-academy/internal/learning"),
	}
}

func (s *Service) start(ctx context.Context, name string, actor academy.User) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "learning."+name, trace.WithAttributes(
		attribute.String("academy.actor_role", actor.Role),
	))
}

func finish(span trace.Span, err error) {
	if err != nil && academy.KindOf(err) == academy.KindUnknown {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireManager(actor academy.User) error {
	if !actor.IsManager() {
		return academy.Denied("manager_only", "user %q may not perform manager operations", actor.Username)
	}
	return nil
}

// record appends a domain event. Failures are logged only.
func (s *Service) record(ctx context.Context, typ, key string, data any, at time.Time) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Record(ctx, typ, key, data, at); err != nil {
		s.log.Warn("event log append failed", "type", typ, "key", key, "error", err)
	}
}

// notify sends msg if a notifier is configured. Delivery failures never fail the
// workflow that triggered them.
func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil || len(msg.To) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("notification failed", "subject", msg.Subject, "error", err)
	}
}

// resolve loads an active course and one of its modules by slug.
func (s *Service) resolve(ctx context.Context, courseSlug, moduleSlug string) (academy.Course, academy.Module, error) {
	course, err := s.activeCourse(ctx, courseSlug)
	if err != nil {
		return academy.Course{}, academy.Module{}, err
	}
	mod, err := s.store.GetModuleBySlug(ctx, course.ID, moduleSlug)
	if err != nil {
		return academy.Course{}, academy.Module{}, err
	}
	return course, mod, nil
}

func (s *Service) activeCourse(ctx context.Context, slug string) (academy.Course, error) {
	course, err := s.store.GetCourseBySlug(ctx, slug)
	if err != nil {
		return academy.Course{}, err
	}
	if !course.IsActive {
		return academy.Course{}, academy.NotFound("course %q", slug)
	}
	return course, nil
}

// ensureAccess fails with PermissionDenied/module_locked when prerequisites are open.
func (s *Service) ensureAccess(ctx context.Context, actor academy.User, mod academy.Module) error {
	ok, err := s.gate.CanAccessModule(ctx, actor.ID, mod)
	if err != nil {
		return err
	}
	if !ok {
		return academy.Denied(CodeModuleLocked, "please complete the previous modules first")
	}
	return nil
}

// Codes carried by errors that callers turn into redirects.
const (
	CodeModuleLocked         = "module_locked"
	CodeNoQuestions          = "no_questions"
	CodeNoFinalTestQuestions = "no_final_test_questions"
)
