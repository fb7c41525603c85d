// Package report derives distances and tabular projections from attendance
// records. All filtering and sorting is client-side; the store has no index
// for this access pattern.
package report

import (
	"sort"
	"strings"

	"campattend/internal/model"
)

// Row is one report line: the record plus its joined profile fields and the
// computed punch-in/punch-out distance.
type Row struct {
	model.AttendanceRecord

	Region      string   `json:"region"`
	State       string   `json:"state"`
	PartnerName string   `json:"partnerName"`
	DistanceKm  *float64 `json:"distanceKm"`
}

// Build filters records to the given date, applies the free-text filter over
// clinic id, nurse name, region and state (case-insensitive substring), joins
// profiles, computes distances, and sorts by date descending with punch-in
// timestamp descending as the tie-break. A missing timestamp sorts last.
func Build(records []model.AttendanceRecord, profiles map[string]model.NurseProfile, date, query string) []Row {
	query = strings.ToLower(strings.TrimSpace(query))

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if rec.Date != date {
			continue
		}
		profile := profiles[rec.ClinicID]
		if query != "" && !matches(rec, profile, query) {
			continue
		}
		row := Row{
			AttendanceRecord: rec,
			Region:           profile.Region,
			State:            profile.State,
			PartnerName:      profile.PartnerName,
		}
		if rec.PunchIn != nil && rec.PunchOut != nil {
			row.DistanceKm = DistanceKm(
				rec.PunchIn.Latitude, rec.PunchIn.Longitude,
				rec.PunchOut.Latitude, rec.PunchOut.Longitude,
			)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return punchInTime(rows[i]) > punchInTime(rows[j])
	})
	return rows
}

func punchInTime(r Row) string {
	if r.PunchIn == nil {
		return ""
	}
	return r.PunchIn.Timestamp
}

func matches(rec model.AttendanceRecord, profile model.NurseProfile, query string) bool {
	for _, field := range []string{rec.ClinicID, rec.NurseName, profile.Region, profile.State} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Stats summarizes one date's rows for the dashboard cards.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	PunchedIn int `json:"punchedIn"`
}

// Summarize counts rows per lifecycle state.
func Summarize(rows []Row) Stats {
	s := Stats{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusPunchedIn:
			s.PunchedIn++
		}
	}
	return s
}
