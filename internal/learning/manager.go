package learning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mind-engage/mindengage-academy/internal/academy"
	"github.com/mind-engage/mindengage-academy/internal/certify"
	"github.com/mind-engage/mindengage-academy/internal/importer"
	"github.com/mind-engage/mindengage-academy/internal/progress"
	"github.com/mind-engage/mindengage-academy/internal/storage"
)

// ProgressMatrix reports every learner against every module.
func (s *Service) ProgressMatrix(ctx context.Context, actor academy.User) (_ []progress.MatrixCell, err error) {
	ctx, span := s.start(ctx, "ProgressMatrix", actor)
	defer func() { finish(span, err) }()

	if err := requireManager(actor); err != nil {
		return nil, err
	}
	learners, err := s.store.ListUsers(ctx, academy.RoleLearner)
	if err != nil {
		return nil, err
	}
	return s.reports.Matrix(ctx, learners)
}

func (s *Service) ListCertificates(ctx context.Context, actor academy.User) (_ []academy.Certificate, err error) {
	ctx, span := s.start(ctx, "ListCertificates", actor)
	defer func() { finish(span, err) }()

	if err := requireManager(actor); err != nil {
		return nil, err
	}
	return s.store.ListCertificates(ctx)
}

// Certificate returns a certificate to its owner or to a manager.
func (s *Service) Certificate(ctx context.Context, actor academy.User, id int64) (_ academy.Certificate, err error) {
	ctx, span := s.start(ctx, "Certificate", actor)
	defer func() { finish(span, err) }()

	return s.certificateFor(ctx, actor, id)
}

func (s *Service) certificateFor(ctx context.Context, actor academy.User, id int64) (academy.Certificate, error) {
	cert, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		return academy.Certificate{}, err
	}
	if cert.UserID != actor.ID && !actor.IsManager() {
		return academy.Certificate{}, academy.Denied("forbidden", "certificate %d belongs to another user", id)
	}
	return cert, nil
}

// CertificateImage returns the PNG rendering of a certificate. Renderings are
// cached in the blob store under certificates/<id>.png.
func (s *Service) CertificateImage(ctx context.Context, actor academy.User, id int64) (_ []byte, err error) {
	ctx, span := s.start(ctx, "CertificateImage", actor)
	defer func() { finish(span, err) }()

	cert, err := s.certificateFor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("certificates/%d.png", cert.ID)
	if s.blobs != nil {
		rc, err := s.blobs.Get(ctx, key)
		switch {
		case err == nil:
			defer rc.Close()
			return io.ReadAll(rc)
		case !errors.Is(err, storage.ErrNotExist):
			s.log.Warn("certificate cache read failed", "key", key, "error", err)
		}
	}
	if s.renderer == nil {
		return nil, academy.Gap("renderer_missing", "certificate rendering is not configured")
	}

	view, err := s.certificateView(ctx, cert)
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.Render(view)
	if err != nil {
		return nil, fmt.Errorf("render certificate %d: %w", cert.ID, err)
	}
	if s.blobs != nil {
		if _, err := s.blobs.Put(ctx, key, bytes.NewReader(png)); err != nil {
			s.log.Warn("certificate cache write failed", "key", key, "error", err)
		}
	}
	return png, nil
}

func (s *Service) certificateView(ctx context.Context, cert academy.Certificate) (certify.View, error) {
	u, err := s.store.GetUser(ctx, cert.UserID)
	if err != nil && !errors.Is(err, academy.ErrNotFound) {
		return certify.View{}, err
	}
	name := u.DisplayName()
	if name == "" {
		name = cert.UserID
	}
	course, err := s.store.GetCourse(ctx, cert.CourseID)
	if err != nil {
		return certify.View{}, err
	}
	mod, err := s.store.GetModule(ctx, cert.ModuleID)
	if err != nil {
		return certify.View{}, err
	}
	return certify.View{
		Number:      cert.CertificateNumber,
		LearnerName: name,
		CourseTitle: course.Title,
		ModuleTitle: mod.Title,
		Score:       cert.Score,
		IssuedAt:    cert.IssuedAt,
	}, nil
}

func (s *Service) ImportQuestions(ctx context.Context, actor academy.User, moduleID int64, deleteExisting bool, raw []byte) (_ importer.Result, err error) {
	ctx, span := s.start(ctx, "ImportQuestions", actor)
	defer func() { finish(span, err) }()

	if err := requireManager(actor); err != nil {
		return importer.Result{}, err
	}
	res, err := s.importer.Import(ctx, moduleID, deleteExisting, raw)
	if err != nil {
		return importer.Result{}, err
	}
	s.log.Info("questions imported", "module_id", moduleID, "questions", res.Questions, "choices", res.Choices, "skipped", res.Skipped)
	return res, nil
}

// AssignCourse grants a course to a user or to a group. Repeating an assignment
// returns the existing one.
func (s *Service) AssignCourse(ctx context.Context, actor academy.User, a academy.CourseAssignment, now time.Time) (_ academy.CourseAssignment, err error) {
	ctx, span := s.start(ctx, "AssignCourse", actor)
	defer func() { finish(span, err) }()

	if err := requireManager(actor); err != nil {
		return academy.CourseAssignment{}, err
	}
	if _, err := s.store.GetCourse(ctx, a.CourseID); err != nil {
		return academy.CourseAssignment{}, err
	}
	if a.UserID != "" {
		if _, err := s.store.GetUser(ctx, a.UserID); err != nil {
			return academy.CourseAssignment{}, err
		}
	}
	a.AssignedAt = now
	return s.store.AssignCourse(ctx, a)
}
