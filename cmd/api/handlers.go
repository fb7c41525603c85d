package main

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campattend/internal/attendance"
	"campattend/internal/auth"
	"campattend/internal/cloudinary"
	"campattend/internal/config"
	"campattend/internal/geo"
	"campattend/internal/imaging"
	"campattend/internal/model"
	"campattend/internal/report"
	"campattend/internal/session"
)

type application struct {
	cfg      config.App
	svc      *attendance.Service
	repo     *attendance.Repository
	locator  *geo.Locator
	sessions *session.Manager
	verifier *auth.Verifier
	cdn      *cloudinary.Client
}

type coordsPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// deviceSource wraps request-carried coordinates as the precise location
// source; nil when the device sent none.
func deviceSource(p coordsPayload) geo.Source {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return geo.Static(model.GeoFix{Latitude: p.Latitude, Longitude: p.Longitude, Source: model.SourceDevice})
}

func (a *application) handleLogin(c *gin.Context) {
	var req struct {
		ClinicID string `json:"clinic_id" binding:"required"`
		Password string `json:"password" binding:"required"`
		coordsPayload
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := a.verifier.Verify(c.Request.Context(), req.ClinicID, req.Password)
	if err != nil {
		a.authError(c, err)
		return
	}
	if role != model.RoleNurse {
		c.JSON(http.StatusForbidden, gin.H{"error": "use the admin login"})
		return
	}

	clinicID := strings.ToUpper(strings.TrimSpace(req.ClinicID))
	profile, err := a.repo.Profile(c.Request.Context(), clinicID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "nurse data not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Location capture is a soft requirement at login.
	loc := a.locator.Acquire(c.Request.Context(), deviceSource(req.coordsPayload), c.ClientIP())

	a.issueSession(c, clinicID, role, *profile, &loc)
}

func (a *application) handleAdminLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := a.verifier.Verify(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.authError(c, err)
		return
	}
	if role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not an admin account"})
		return
	}

	a.issueSession(c, auth.AdminID, role, model.NurseProfile{}, nil)
}

func (a *application) issueSession(c *gin.Context, clinicID, role string, profile model.NurseProfile, loc *model.GeoFix) {
	sess, err := a.sessions.Issue(c.Request.Context(), clinicID, role, profile, loc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session issue failed"})
		return
	}
	token, err := auth.Issue(sess.ID, clinicID, role, a.cfg.JWTIssuer, a.cfg.JWTSigningKey, sess.ExpiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	if role == model.RoleNurse {
		if err := a.repo.RecordLogin(c.Request.Context(), sess, c.Request.UserAgent()); err != nil {
			log.Printf("login audit write failed for %s: %v", clinicID, err)
		}
	}

	activeSessions.Inc()
	go a.sessions.Watch(context.Background(), sess.ID, func() {
		activeSessions.Dec()
		log.Printf("session %s expired, forced sign-out", sess.ID)
	})

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": sess.ExpiresAt.Unix(),
		"session":    sess,
	})
}

func (a *application) authError(c *gin.Context, err error) {
	loginFailures.Inc()
	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, model.ErrInvalidIdentifier):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrInvalidCredential):
		status = http.StatusUnauthorized
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (a *application) handleSession(c *gin.Context) {
	sess := auth.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"session":           sess,
		"remaining_seconds": int(a.sessions.Remaining(sess).Seconds()),
	})
}

func (a *application) handleLogout(c *gin.Context) {
	sess := auth.CurrentSession(c)
	if err := a.sessions.Revoke(c.Request.Context(), sess.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	activeSessions.Dec()
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (a *application) handlePunchIn(c *gin.Context) {
	var req coordsPayload
	_ = c.ShouldBindJSON(&req) // body optional, IP fallback covers the rest

	sess := auth.CurrentSession(c)
	rec, err := a.svc.PunchIn(c.Request.Context(), sess, a.svc.Today(), deviceSource(req), c.ClientIP())
	a.respondTransition(c, rec, err, "in")
}

func (a *application) handlePunchOut(c *gin.Context) {
	var req coordsPayload
	_ = c.ShouldBindJSON(&req)

	sess := auth.CurrentSession(c)
	rec, err := a.svc.PunchOut(c.Request.Context(), sess, a.svc.Today(), deviceSource(req), c.ClientIP())
	a.respondTransition(c, rec, err, "out")
}

func (a *application) handleSubmitDetails(c *gin.Context) {
	count, err := strconv.Atoi(c.PostForm("consultation_count"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "consultation count must be a non-negative integer"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	var registerURL string
	if files := form.File["register_image"]; len(files) > 0 {
		registerURL, err = a.uploadImage(c.Request.Context(), files[0])
		if err != nil {
			a.imageError(c, err)
			return
		}
	}

	campFiles := form.File["camp_photos"]
	if len(campFiles) > model.MaxCampPhotos {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "at most 5 camp photos"})
		return
	}
	campURLs := make([]string, 0, len(campFiles))
	for _, fh := range campFiles {
		url, err := a.uploadImage(c.Request.Context(), fh)
		if err != nil {
			a.imageError(c, err)
			return
		}
		campURLs = append(campURLs, url)
	}

	sess := auth.CurrentSession(c)
	rec, err := a.svc.SubmitDetails(c.Request.Context(), sess, a.svc.Today(), count, registerURL, campURLs)
	a.respondTransition(c, rec, err, "details")
}

var errImageStorage = errors.New("image storage not configured")

func (a *application) uploadImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if a.cdn == nil {
		return "", errImageStorage
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	processed, err := imaging.Process(data)
	if err != nil {
		return "", err
	}
	result, err := a.cdn.UploadBytes(ctx, processed, fh.Filename)
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

func (a *application) imageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errImageStorage):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("image upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
	}
}

// respondTransition maps state-machine outcomes onto the wire. A remote-write
// failure is a partial success: local state is durable, sync is pending.
func (a *application) respondTransition(c *gin.Context, rec *model.AttendanceRecord, err error, kind string) {
	switch {
	case err == nil:
		punchTotal.WithLabelValues(kind).Inc()
		c.JSON(http.StatusOK, gin.H{"record": rec})
	case errors.Is(err, model.ErrRemoteWrite):
		punchTotal.WithLabelValues(kind).Inc()
		pendingSyncTotal.Inc()
		c.JSON(http.StatusAccepted, gin.H{
			"record":       rec,
			"sync_pending": true,
			"warning":      "saved locally, remote sync pending",
		})
	case errors.Is(err, model.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrLocationUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (a *application) handleMyRecord(c *gin.Context) {
	date := c.DefaultQuery("date", a.svc.Today())
	sess := auth.CurrentSession(c)
	rec, err := a.repo.Get(c.Request.Context(), sess.ClinicID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "record": rec})
}

func (a *application) buildReport(c *gin.Context) ([]report.Row, string, bool) {
	date := c.DefaultQuery("date", a.svc.Today())
	query := c.Query("q")

	records, err := a.repo.ListAll(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrDataIntegrity) {
			log.Printf("data integrity: %v", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, "", false
	}
	profiles, err := a.repo.Profiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return report.Build(records, profiles, date, query), date, true
}

func (a *application) handleAdminRecords(c *gin.Context) {
	rows, date, ok := a.buildReport(c)
	if !ok {
		return
	}

	page := 1
	if v := c.Query("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			page = parsed
		}
	}
	pageRows, page, totalPages := report.Paginate(rows, page)

	c.JSON(http.StatusOK, gin.H{
		"date":        date,
		"stats":       report.Summarize(rows),
		"rows":        pageRows,
		"page":        page,
		"total_pages": totalPages,
		"page_size":   report.PageSize,
	})
}

func (a *application) handleAdminExport(c *gin.Context) {
	rows, date, ok := a.buildReport(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(date)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", report.ExportCSV(rows))
}
