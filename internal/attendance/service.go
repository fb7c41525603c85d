package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campattend/internal/geo"
	"campattend/internal/model"
	"campattend/internal/queue"
)

// Locator is the location-acquisition contract the state machine needs.
type Locator interface {
	Acquire(ctx context.Context, primary geo.Source, clientIP string) model.GeoFix
}

// Service is the attendance state machine. It validates transitions over one
// day's record, stamps timestamps and coordinates, and persists through the
// dual-write repository. Ordering within a record is enforced by these
// preconditions alone; there is a single active session per clinic.
type Service struct {
	repo    *Repository
	locator Locator
	resync  queue.Queue
	now     func() time.Time
}

// NewService creates the state machine. resync receives natural keys of
// records whose remote write failed.
func NewService(repo *Repository, locator Locator, resync queue.Queue) *Service {
	return &Service{repo: repo, locator: locator, resync: resync, now: time.Now}
}

// Today returns the calendar date key for the current instant.
func (s *Service) Today() string {
	return s.now().Format("2006-01-02")
}

// PunchIn starts the day for (clinic, date). Fails with ErrInvalidTransition
// when a record already exists, and with ErrLocationUnavailable when both
// location sources fail — in either case nothing is written.
func (s *Service) PunchIn(ctx context.Context, sess *model.Session, date string, device geo.Source, clientIP string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Get(ctx, sess.ClinicID, date)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return nil, fmt.Errorf("%w: already %s on %s", model.ErrInvalidTransition, rec.Status, date)
	}

	fix := s.locator.Acquire(ctx, device, clientIP)
	if !fix.HasCoords() {
		return nil, fmt.Errorf("%w: %s", model.ErrLocationUnavailable, fix.Message)
	}

	rec = &model.AttendanceRecord{
		ClinicID:  sess.ClinicID,
		NurseName: sess.Profile.NurseName,
		Date:      date,
		PunchIn:   s.punch(fix),
	}
	return rec, s.save(ctx, rec)
}

// PunchOut completes the day. The record must be in the punched-in state; a
// location failure leaves it unchanged.
func (s *Service) PunchOut(ctx context.Context, sess *model.Session, date string, device geo.Source, clientIP string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Get(ctx, sess.ClinicID, date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: not punched in on %s", model.ErrInvalidTransition, date)
	}
	if rec.PunchOut != nil {
		return nil, fmt.Errorf("%w: already completed on %s", model.ErrInvalidTransition, date)
	}

	fix := s.locator.Acquire(ctx, device, clientIP)
	if !fix.HasCoords() {
		return nil, fmt.Errorf("%w: %s", model.ErrLocationUnavailable, fix.Message)
	}

	rec.PunchOut = s.punch(fix)
	return rec, s.save(ctx, rec)
}

// SubmitDetails finalizes the day's post-punch-out form. Terminal for the
// date; consultationCount must be non-negative and photos are capped.
func (s *Service) SubmitDetails(ctx context.Context, sess *model.Session, date string, consultationCount int, registerImage string, campPhotos []string) (*model.AttendanceRecord, error) {
	if consultationCount < 0 {
		return nil, fmt.Errorf("%w: consultation count must be non-negative", model.ErrValidation)
	}
	if len(campPhotos) > model.MaxCampPhotos {
		return nil, fmt.Errorf("%w: at most %d camp photos", model.ErrValidation, model.MaxCampPhotos)
	}

	rec, err := s.repo.Get(ctx, sess.ClinicID, date)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.PunchOut == nil {
		return nil, fmt.Errorf("%w: day not completed on %s", model.ErrInvalidTransition, date)
	}
	if rec.FormSubmitted {
		return nil, fmt.Errorf("%w: details already submitted on %s", model.ErrInvalidTransition, date)
	}

	rec.ConsultationCount = &consultationCount
	rec.RegisterImage = registerImage
	rec.CampPhotos = campPhotos
	rec.FormSubmitted = true
	return rec, s.save(ctx, rec)
}

func (s *Service) punch(fix model.GeoFix) *model.Punch {
	return &model.Punch{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Source:    fix.Source,
	}
}

// save persists the record; a remote-write failure keeps the local state and
// hands the key to the resync queue.
func (s *Service) save(ctx context.Context, rec *model.AttendanceRecord) error {
	err := s.repo.Save(ctx, rec)
	if err == nil || !errors.Is(err, model.ErrRemoteWrite) {
		return err
	}
	if s.resync != nil {
		msg := queue.Message{Type: queue.TypeResync, Body: []byte(rec.ClinicID + "|" + rec.Date)}
		if perr := s.resync.Publish(ctx, msg); perr != nil {
			log.Printf("resync enqueue failed for %s: %v", rec.Key(), perr)
		}
	}
	return err
}
