package report

import (
	"strconv"
	"strings"
	"time"

	"campattend/internal/model"
)

// The export quotes every field, empties included, so encoding/csv (which
// quotes only when forced) cannot produce these bytes.

var csvHeader = []string{
	"Date", "Clinic ID", "Nurse Name", "Region", "State", "Partner",
	"Punch In Time", "Punch In Location", "Punch In Map Link",
	"Punch Out Time", "Punch Out Location", "Punch Out Map Link",
	"Distance (km)", "Consultations", "Register Image", "Camp Photos",
	"Form Submitted", "Status",
}

// Filename returns the download name for a date's export.
func Filename(date string) string {
	return "camp-attendance-" + date + ".csv"
}

// ExportCSV renders rows as UTF-8 CSV with a header row, fully quoted fields,
// and newline-joined lines. Missing punches become empty strings.
func ExportCSV(rows []Row) []byte {
	var b strings.Builder
	writeLine(&b, csvHeader)
	for _, row := range rows {
		writeLine(&b, csvFields(row))
	}
	return []byte(b.String())
}

func csvFields(row Row) []string {
	fields := []string{row.Date, row.ClinicID, row.NurseName, row.Region, row.State, row.PartnerName}
	fields = appendPunch(fields, row.PunchIn)
	fields = appendPunch(fields, row.PunchOut)

	distance := ""
	if row.DistanceKm != nil {
		distance = strconv.FormatFloat(*row.DistanceKm, 'f', 3, 64)
	}
	consultations := ""
	if row.ConsultationCount != nil {
		consultations = strconv.Itoa(*row.ConsultationCount)
	}
	return append(fields,
		distance,
		consultations,
		yesNo(row.RegisterImage != ""),
		strconv.Itoa(len(row.CampPhotos)),
		yesNo(row.FormSubmitted),
		string(row.Status),
	)
}

func appendPunch(fields []string, punch *model.Punch) []string {
	if punch == nil {
		return append(fields, "", "", "")
	}
	return append(fields,
		formatTimestamp(punch.Timestamp),
		FormatCoords(punch.Latitude, punch.Longitude),
		MapsURL(punch.Latitude, punch.Longitude),
	)
}

func formatTimestamp(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("02/01/2006, 3:04 pm")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// writeLine emits one row with every field quoted, doubling any embedded
// quote per the CSV convention.
func writeLine(b *strings.Builder, fields []string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
}
