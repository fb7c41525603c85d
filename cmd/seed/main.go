package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"campattend/internal/auth"
	"campattend/internal/config"
	"campattend/internal/model"
	"campattend/internal/store"
)

// Seeds nurse profiles and credentials from the roster CSV export. Only
// ACTIVE rows are imported; the first row per clinic id wins. Passwords
// follow the rollout scheme Nurse@<clinicId>2024 unless overridden.
func main() {
	csvPath := flag.String("csv", "roster.csv", "path to the roster CSV")
	adminPassword := flag.String("admin-password", "", "create/update the admin credential with this password")
	flag.Parse()

	cfg := config.Load()
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	docs := store.NewPostgresStore(db.Client)
	ctx := context.Background()
	if err := docs.Init(ctx); err != nil {
		log.Fatalf("schema init failed: %v", err)
	}

	if *adminPassword != "" {
		if err := seedAdmin(ctx, docs, *adminPassword); err != nil {
			log.Fatalf("admin seed failed: %v", err)
		}
		log.Println("admin credential saved")
	}

	rows, err := readRoster(*csvPath)
	if err != nil {
		log.Fatalf("roster read failed: %v", err)
	}

	seen := make(map[string]bool)
	imported := 0
	for _, row := range rows {
		clinicID := strings.ToUpper(strings.TrimSpace(row["Clinic ID"]))
		if clinicID == "" || seen[clinicID] || row["Status"] != "ACTIVE" {
			continue
		}
		seen[clinicID] = true

		if err := seedNurse(ctx, docs, clinicID, row); err != nil {
			log.Printf("seed %s failed: %v", clinicID, err)
			continue
		}
		imported++
	}

	log.Printf("seeded %d of %d roster rows", imported, len(rows))
}

func readRoster(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("roster %s is empty", path)
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[strings.TrimSpace(name)] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// nameAndPhone matches the combined "Nurse Name and TAB Number" column.
var nameAndPhone = regexp.MustCompile(`^([^\d]+)\s*(\d+)?$`)

func seedNurse(ctx context.Context, docs store.DocumentStore, clinicID string, row map[string]string) error {
	name := row["Nurse Name and TAB Number"]
	phone := ""
	if m := nameAndPhone.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(m[1])
		phone = m[2]
	}

	profile := store.Fields{
		"clinicId":      clinicID,
		"email":         auth.Email(clinicID),
		"nurseName":     name,
		"nursePhone":    phone,
		"clinicAddress": row["Clinic Address"],
		"clinicType":    row["Clinic Type"],
		"partnerName":   row["PARTNERNAME"],
		"region":        row["REGION/DISTRICT"],
		"state":         row["State"],
		"nurseType":     row["NURSE TYPE"],
		"nurseEmpId":    row["NURSE EMP ID"],
		"status":        row["Status"],
	}
	if err := docs.Set(ctx, "nurses", clinicID, profile, true); err != nil {
		return err
	}

	hash, err := auth.HashSecret("Nurse@" + clinicID + "2024")
	if err != nil {
		return err
	}
	return docs.Set(ctx, "credentials", clinicID, store.Fields{
		"email":        auth.Email(clinicID),
		"passwordHash": hash,
		"role":         model.RoleNurse,
	}, true)
}

func seedAdmin(ctx context.Context, docs store.DocumentStore, password string) error {
	hash, err := auth.HashSecret(password)
	if err != nil {
		return err
	}
	return docs.Set(ctx, "credentials", auth.AdminID, store.Fields{
		"email":        auth.Email(auth.AdminID),
		"passwordHash": hash,
		"role":         model.RoleAdmin,
	}, true)
}
