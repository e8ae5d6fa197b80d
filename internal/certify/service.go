package certify

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/logger"
)

const EventCertificateIssued = "certificate.issued"

// Issued describes a freshly created certificate and its display context.
type Issued struct {
	Certificate academy.Certificate
	User        academy.User
	Course      academy.Course
	Module      academy.Module
}

// Listener is told about every newly issued certificate.
type Listener interface {
	CertificateIssued(ctx context.Context, ev Issued) error
}

type ListenerFunc func(ctx context.Context, ev Issued) error

func (f ListenerFunc) CertificateIssued(ctx context.Context, ev Issued) error { return f(ctx, ev) }

type Option func(*Service)

func WithPrefix(p string) Option         { return func(s *Service) { s.prefix = p } }
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }
func WithListener(ls ...Listener) Option { return func(s *Service) { s.listeners = append(s.listeners, ls...) } }
func withNumberer(f numberFunc) Option   { return func(s *Service) { s.number = f } }

type numberFunc func(prefix string, courseID, moduleID int64, userID string, at time.Time) string

// Service issues at most one certificate per (user, module). Certificates are
// never updated or revoked here.
type Service struct {
	store     academy.Store
	prefix    string
	log       *logger.Logger
	listeners []Listener
	number    numberFunc
}

func NewService(store academy.Store, opts ...Option) *Service {
	s := &Service{store: store, prefix: DefaultPrefix, log: logger.Nop(), number: Number}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("service", "CertificationService")
	return s
}

// IssueIfNeeded returns the existing certificate for (user, module) or creates one
// carrying score. issued is true only for the call that created the row; listeners
// run for that call alone and their failures do not fail issuance.
func (s *Service) IssueIfNeeded(ctx context.Context, user academy.User, mod academy.Module, score int, now time.Time) (academy.Certificate, bool, error) {
	existing, err := s.store.FindCertificate(ctx, user.ID, mod.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, academy.ErrNotFound) {
		return academy.Certificate{}, false, err
	}

	course, err := s.store.GetCourse(ctx, mod.CourseID)
	if err != nil {
		return academy.Certificate{}, false, err
	}

	cert, created, err := s.store.CreateCertificate(ctx, academy.Certificate{
		UserID:            user.ID,
		CourseID:          course.ID,
		ModuleID:          mod.ID,
		Score:             score,
		CertificateNumber: s.number(s.prefix, course.ID, mod.ID, user.ID, now),
		IssuedAt:          now,
	})
	if err != nil {
		return academy.Certificate{}, false, err
	}
	if !created {
		// a concurrent issue won the insert
		return cert, false, nil
	}

	s.log.Info("certificate issued", "certificate_id", cert.ID, "number", cert.CertificateNumber,
		"user", user.ID, "module_id", mod.ID, "score", cert.Score)
	ev := Issued{Certificate: cert, User: user, Course: course, Module: mod}
	for _, l := range s.listeners {
		if err := l.CertificateIssued(ctx, ev); err != nil {
			s.log.Warn("certificate listener failed", "certificate_id", cert.ID, "error", err)
		}
	}
	return cert, true, nil
}
