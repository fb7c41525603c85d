package model

import "time"

// LocationSource identifies how a coordinate fix was obtained.
type LocationSource string

const (
	SourceDevice      LocationSource = "device"
	SourceIP          LocationSource = "ip"
	SourceUnavailable LocationSource = "unavailable"
)

// GeoFix is a best-effort coordinate pair. Nil coordinates mean no fix;
// Source records which collaborator produced it.
type GeoFix struct {
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Source    LocationSource `json:"source"`
	Message   string         `json:"message,omitempty"`
}

// HasCoords reports whether both coordinates are present.
func (f GeoFix) HasCoords() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// Unavailable returns the no-fix value with an explanatory message.
func Unavailable(message string) GeoFix {
	return GeoFix{Source: SourceUnavailable, Message: message}
}

// Status of an attendance record. Derived from punch presence, never
// authoritative on its own.
type Status string

const (
	StatusPunchedIn Status = "punched_in"
	StatusCompleted Status = "completed"
)

// Punch is one attendance event (start or end of the day).
type Punch struct {
	Timestamp string         `json:"timestamp"` // RFC 3339
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Source    LocationSource `json:"source"`
}

// AttendanceRecord is one camp day for one clinic. Keyed by
// (ClinicID, Date); created on punch-in and mutated in place afterwards.
type AttendanceRecord struct {
	ClinicID  string `json:"clinicId"`
	NurseName string `json:"nurseName"`
	Date      string `json:"date"` // YYYY-MM-DD
	PunchIn   *Punch `json:"punchIn"`
	PunchOut  *Punch `json:"punchOut"`
	Status    Status `json:"status"`

	// Post punch-out details.
	ConsultationCount *int     `json:"consultationCount,omitempty"`
	RegisterImage     string   `json:"registerImage,omitempty"`
	CampPhotos        []string `json:"campPhotos,omitempty"`
	FormSubmitted     bool     `json:"formSubmitted,omitempty"`

	// Set when the local cache holds state the remote store has not
	// yet acknowledged; cleared by the resync worker.
	PendingSync bool `json:"pendingSync,omitempty"`
}

// DerivedStatus recomputes status from punch presence.
func (r *AttendanceRecord) DerivedStatus() Status {
	if r.PunchOut != nil {
		return StatusCompleted
	}
	return StatusPunchedIn
}

// Key returns the natural key of the record.
func (r *AttendanceRecord) Key() string {
	return r.ClinicID + ":" + r.Date
}

// MaxCampPhotos caps the camp photo sequence per record.
const MaxCampPhotos = 5

// NurseProfile is read-only reference data joined into reports.
type NurseProfile struct {
	ClinicID      string `json:"clinicId"`
	NurseName     string `json:"nurseName"`
	NursePhone    string `json:"nursePhone,omitempty"`
	ClinicAddress string `json:"clinicAddress,omitempty"`
	ClinicType    string `json:"clinicType,omitempty"`
	PartnerName   string `json:"partnerName,omitempty"`
	Region        string `json:"region,omitempty"`
	State         string `json:"state,omitempty"`
	NurseType     string `json:"nurseType,omitempty"`
	NurseEmpID    string `json:"nurseEmpId,omitempty"`
}

// Roles carried in session claims.
const (
	RoleNurse = "nurse"
	RoleAdmin = "admin"
)

// Session is a time-boxed authorization grant issued after identity
// verification. Destroyed on explicit sign-out or expiry.
type Session struct {
	ID        string       `json:"id"`
	ClinicID  string       `json:"clinicId"`
	Role      string       `json:"role"`
	Profile   NurseProfile `json:"profile"`
	IssuedAt  time.Time    `json:"issuedAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Location  *GeoFix      `json:"location,omitempty"`
}

// Remaining reports the time left before expiry at the given instant.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the session has crossed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
