package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"campattend/internal/model"
	"campattend/internal/store"
)

// Collections in the remote store. Each camp's punch records and login audit
// live in sub-collections under its attendance head document.
const (
	collNurses      = "nurses"
	collCredentials = "credentials"
	collAttendance  = "attendance"
	subRecords      = "records"
	subLogins       = "logins"
)

func recordsCollection(clinicID string) string {
	return collAttendance + "/" + clinicID + "/" + subRecords
}

func loginsCollection(clinicID string) string {
	return collAttendance + "/" + clinicID + "/" + subLogins
}

// Repository persists attendance records with a write-through local cache in
// front of the authoritative remote store. The cache write always happens
// first; a failed remote write flags the record pending-sync instead of
// rolling back.
type Repository struct {
	cache  Cache
	remote store.DocumentStore
}

// NewRepository creates a repo over a cache and a remote store.
func NewRepository(cache Cache, remote store.DocumentStore) *Repository {
	return &Repository{cache: cache, remote: remote}
}

// Get returns the record for (clinicID, date), or nil when none exists.
// Cache hits win; on a miss the remote copy backfills the cache.
func (r *Repository) Get(ctx context.Context, clinicID, date string) (*model.AttendanceRecord, error) {
	rec, err := r.cache.GetRecord(ctx, clinicID, date)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	fields, ok, err := r.remote.Get(ctx, recordsCollection(clinicID), date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	rec = &model.AttendanceRecord{}
	if err := store.FromFields(fields, rec); err != nil {
		return nil, err
	}
	if err := validateStatus(rec); err != nil {
		return nil, err
	}
	if err := r.cache.PutRecord(ctx, rec); err != nil {
		log.Printf("cache backfill failed for %s: %v", rec.Key(), err)
	}
	return rec, nil
}

// Save dual-writes the record. The cache write must succeed; a remote failure
// leaves the cached copy flagged pending-sync and reports ErrRemoteWrite so
// the caller can warn and schedule a resync.
func (r *Repository) Save(ctx context.Context, rec *model.AttendanceRecord) error {
	rec.Status = rec.DerivedStatus()
	rec.PendingSync = false
	if err := r.cache.PutRecord(ctx, rec); err != nil {
		return fmt.Errorf("cache write for %s: %w", rec.Key(), err)
	}

	if err := r.writeRemote(ctx, rec); err != nil {
		rec.PendingSync = true
		if cerr := r.cache.PutRecord(ctx, rec); cerr != nil {
			log.Printf("pending-sync flag write failed for %s: %v", rec.Key(), cerr)
		}
		return fmt.Errorf("record %s: %w: %v", rec.Key(), model.ErrRemoteWrite, err)
	}
	return nil
}

func (r *Repository) writeRemote(ctx context.Context, rec *model.AttendanceRecord) error {
	fields, err := store.ToFields(rec)
	if err != nil {
		return err
	}
	delete(fields, "pendingSync") // cache-only bookkeeping
	return r.remote.Set(ctx, recordsCollection(rec.ClinicID), rec.Date, fields, true)
}

// Resync replays the cached record to the remote store and clears the
// pending-sync flag. Idempotent: the merge write is keyed by the natural key.
func (r *Repository) Resync(ctx context.Context, clinicID, date string) error {
	rec, err := r.cache.GetRecord(ctx, clinicID, date)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("record %s:%s: %w", clinicID, date, model.ErrNotFound)
	}
	if err := r.writeRemote(ctx, rec); err != nil {
		return fmt.Errorf("record %s: %w: %v", rec.Key(), model.ErrRemoteWrite, err)
	}
	rec.PendingSync = false
	return r.cache.PutRecord(ctx, rec)
}

// ListAll fetches every record across every camp and date. No server-side
// filter; sorting and filtering happen in the reporting layer.
func (r *Repository) ListAll(ctx context.Context) ([]model.AttendanceRecord, error) {
	docs, err := r.remote.QueryAll(ctx, subRecords)
	if err != nil {
		return nil, err
	}
	records := make([]model.AttendanceRecord, 0, len(docs))
	for _, doc := range docs {
		var rec model.AttendanceRecord
		if err := store.FromFields(doc.Fields, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", doc.ID, err)
		}
		if err := validateStatus(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// validateStatus recomputes status from punch presence and rejects stored
// divergence instead of trusting it.
func validateStatus(rec *model.AttendanceRecord) error {
	if rec.PunchIn == nil {
		return fmt.Errorf("record %s has no punch-in: %w", rec.Key(), model.ErrDataIntegrity)
	}
	if derived := rec.DerivedStatus(); rec.Status != derived {
		return fmt.Errorf("record %s stored %q, derived %q: %w",
			rec.Key(), rec.Status, derived, model.ErrDataIntegrity)
	}
	return nil
}

// Profile looks up one nurse's reference data.
func (r *Repository) Profile(ctx context.Context, clinicID string) (*model.NurseProfile, error) {
	fields, ok, err := r.remote.Get(ctx, collNurses, clinicID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("nurse %s: %w", clinicID, model.ErrNotFound)
	}
	profile := &model.NurseProfile{}
	if err := store.FromFields(fields, profile); err != nil {
		return nil, err
	}
	profile.ClinicID = clinicID
	return profile, nil
}

// Profiles returns all nurse reference data keyed by clinic id, for report
// joins.
func (r *Repository) Profiles(ctx context.Context) (map[string]model.NurseProfile, error) {
	docs, err := r.remote.QueryAll(ctx, collNurses)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]model.NurseProfile, len(docs))
	for _, doc := range docs {
		var p model.NurseProfile
		if err := store.FromFields(doc.Fields, &p); err != nil {
			return nil, err
		}
		p.ClinicID = doc.ID
		profiles[doc.ID] = p
	}
	return profiles, nil
}

// RecordLogin merges the camp head document and appends a login audit entry.
func (r *Repository) RecordLogin(ctx context.Context, sess *model.Session, userAgent string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	head := store.Fields{
		"clinicId":      sess.ClinicID,
		"nurseName":     sess.Profile.NurseName,
		"lastLoginTime": now,
	}
	if err := r.remote.Set(ctx, collAttendance, sess.ClinicID, head, true); err != nil {
		return err
	}

	login := store.Fields{
		"loginTime":        now,
		"sessionExpiresAt": sess.ExpiresAt.UTC().Format(time.RFC3339),
		"userAgent":        userAgent,
	}
	if sess.Location != nil {
		login["latitude"] = sess.Location.Latitude
		login["longitude"] = sess.Location.Longitude
		login["locationSource"] = sess.Location.Source
		login["locationMessage"] = sess.Location.Message
	}
	_, err := r.remote.Add(ctx, loginsCollection(sess.ClinicID), login)
	return err
}
