package report

import (
	"testing"

	"campattend/internal/model"
)

func rec(clinicID, date, punchInAt string) model.AttendanceRecord {
	r := model.AttendanceRecord{
		ClinicID:  clinicID,
		NurseName: "Nurse " + clinicID,
		Date:      date,
		Status:    model.StatusPunchedIn,
	}
	if punchInAt != "" {
		r.PunchIn = &model.Punch{Timestamp: punchInAt, Latitude: fp(28.6), Longitude: fp(77.2), Source: model.SourceDevice}
	}
	return r
}

func TestBuildFiltersByDate(t *testing.T) {
	records := []model.AttendanceRecord{
		rec("ECCM001", "2024-01-01", "2024-01-01T09:00:00Z"),
		rec("ECCM002", "2024-01-02", "2024-01-02T08:30:00Z"),
		rec("ECCM003", "2024-01-02", "2024-01-02T10:15:00Z"),
	}

	rows := Build(records, nil, "2024-01-02", "")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Punch-in timestamp descending.
	if rows[0].ClinicID != "ECCM003" || rows[1].ClinicID != "ECCM002" {
		t.Errorf("sort order = %s, %s; want ECCM003, ECCM002", rows[0].ClinicID, rows[1].ClinicID)
	}
}

func TestBuildMissingTimestampSortsLast(t *testing.T) {
	records := []model.AttendanceRecord{
		rec("ECCM001", "2024-01-02", ""),
		rec("ECCM002", "2024-01-02", "2024-01-02T08:30:00Z"),
	}
	rows := Build(records, nil, "2024-01-02", "")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].ClinicID != "ECCM001" {
		t.Errorf("record without punch-in timestamp should sort last, got %s", rows[1].ClinicID)
	}
}

func TestBuildTextFilter(t *testing.T) {
	profiles := map[string]model.NurseProfile{
		"ECCM001": {ClinicID: "ECCM001", Region: "North Delhi", State: "Delhi"},
		"ECCM002": {ClinicID: "ECCM002", Region: "Mumbai Suburban", State: "Maharashtra"},
	}
	records := []model.AttendanceRecord{
		rec("ECCM001", "2024-01-02", "2024-01-02T09:00:00Z"),
		rec("ECCM002", "2024-01-02", "2024-01-02T09:05:00Z"),
	}

	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty keeps all", "", []string{"ECCM002", "ECCM001"}},
		{"clinic id", "eccm001", []string{"ECCM001"}},
		{"region case-insensitive", "MUMBAI", []string{"ECCM002"}},
		{"state substring", "maha", []string{"ECCM002"}},
		{"no match", "chennai", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := Build(records, profiles, "2024-01-02", tc.query)
			if len(rows) != len(tc.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tc.want))
			}
			for i, id := range tc.want {
				if rows[i].ClinicID != id {
					t.Errorf("row %d = %s, want %s", i, rows[i].ClinicID, id)
				}
			}
		})
	}
}

func TestBuildComputesDistance(t *testing.T) {
	r := rec("ECCM001", "2024-01-02", "2024-01-02T09:00:00Z")
	r.PunchOut = &model.Punch{Timestamp: "2024-01-02T17:00:00Z", Latitude: fp(28.7041), Longitude: fp(77.1025), Source: model.SourceDevice}
	r.PunchIn.Latitude = fp(28.6139)
	r.PunchIn.Longitude = fp(77.2090)
	r.Status = model.StatusCompleted

	rows := Build([]model.AttendanceRecord{r}, nil, "2024-01-02", "")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].DistanceKm == nil {
		t.Fatal("expected computed distance")
	}
	if *rows[0].DistanceKm < 14.3 || *rows[0].DistanceKm > 14.6 {
		t.Errorf("distance = %v, want ~14.4", *rows[0].DistanceKm)
	}
}

func TestSummarize(t *testing.T) {
	completed := rec("ECCM001", "2024-01-02", "2024-01-02T09:00:00Z")
	completed.PunchOut = &model.Punch{Timestamp: "2024-01-02T17:00:00Z"}
	completed.Status = model.StatusCompleted

	rows := Build([]model.AttendanceRecord{
		completed,
		rec("ECCM002", "2024-01-02", "2024-01-02T09:30:00Z"),
		rec("ECCM003", "2024-01-02", "2024-01-02T10:00:00Z"),
	}, nil, "2024-01-02", "")

	stats := Summarize(rows)
	if stats.Total != 3 || stats.Completed != 1 || stats.PunchedIn != 2 {
		t.Errorf("stats = %+v, want total 3, completed 1, punched in 2", stats)
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]Row, 45)

	cases := []struct {
		name       string
		page       int
		wantLen    int
		wantPage   int
		wantTotal  int
	}{
		{"first page", 1, 20, 1, 3},
		{"middle page", 2, 20, 2, 3},
		{"last partial page", 3, 5, 3, 3},
		{"clamped high", 9, 5, 3, 3},
		{"clamped low", 0, 20, 1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pageRows, page, total := Paginate(rows, tc.page)
			if len(pageRows) != tc.wantLen || page != tc.wantPage || total != tc.wantTotal {
				t.Errorf("Paginate(45 rows, %d) = %d rows, page %d of %d; want %d rows, page %d of %d",
					tc.page, len(pageRows), page, total, tc.wantLen, tc.wantPage, tc.wantTotal)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	pageRows, page, total := Paginate(nil, 1)
	if len(pageRows) != 0 || page != 1 || total != 1 {
		t.Errorf("Paginate(empty) = %d rows, page %d of %d; want 0 rows, page 1 of 1", len(pageRows), page, total)
	}
}
