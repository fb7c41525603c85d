package auth

import (
	"context"
	"errors"
	"testing"

	"campattend/internal/model"
	"campattend/internal/store"
)

type memDocs struct {
	docs map[string]store.Fields
}

func (m *memDocs) Get(_ context.Context, collection, id string) (store.Fields, bool, error) {
	fields, ok := m.docs[collection+"/"+id]
	return fields, ok, nil
}

func (m *memDocs) Set(_ context.Context, collection, id string, fields store.Fields, _ bool) error {
	m.docs[collection+"/"+id] = fields
	return nil
}

func (m *memDocs) Update(context.Context, string, string, store.Fields) error { return nil }

func (m *memDocs) Add(context.Context, string, store.Fields) (string, error) { return "", nil }

func (m *memDocs) QueryAll(context.Context, string) ([]store.Document, error) { return nil, nil }

type memAttempts struct {
	counts map[string]int
	max    int
}

func (a *memAttempts) Record(_ context.Context, id string) error {
	a.counts[id]++
	return nil
}

func (a *memAttempts) TooMany(_ context.Context, id string) (bool, error) {
	return a.counts[id] >= a.max, nil
}

func (a *memAttempts) Reset(_ context.Context, id string) error {
	delete(a.counts, id)
	return nil
}

func newTestVerifier(t *testing.T) (*Verifier, *memAttempts) {
	t.Helper()
	docs := &memDocs{docs: make(map[string]store.Fields)}
	for id, cred := range map[string]struct {
		password string
		role     string
	}{
		"ECCM001": {"Nurse@ECCM0012024", model.RoleNurse},
		AdminID:   {"super-secret", model.RoleAdmin},
	} {
		hash, err := HashSecret(cred.password)
		if err != nil {
			t.Fatalf("HashSecret: %v", err)
		}
		docs.docs["credentials/"+id] = store.Fields{
			"email":        Email(id),
			"passwordHash": hash,
			"role":         cred.role,
		}
	}
	attempts := &memAttempts{counts: make(map[string]int), max: 3}
	return NewVerifier(docs, attempts), attempts
}

func TestVerify(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		identifier string
		secret     string
		wantRole   string
		wantErr    error
	}{
		{"nurse login", "ECCM001", "Nurse@ECCM0012024", model.RoleNurse, nil},
		{"lower-case identifier", "eccm001", "Nurse@ECCM0012024", model.RoleNurse, nil},
		{"admin alias", "admin", "super-secret", model.RoleAdmin, nil},
		{"bad format", "no spaces!", "x", "", model.ErrInvalidIdentifier},
		{"unknown clinic", "ECCM999", "x", "", model.ErrUserNotFound},
		{"wrong password", "ECCM001", "wrong", "", model.ErrInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, err := v.Verify(ctx, tc.identifier, tc.secret)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if role != tc.wantRole {
				t.Errorf("role = %q, want %q", role, tc.wantRole)
			}
		})
	}
}

func TestVerifyLockout(t *testing.T) {
	v, attempts := newTestVerifier(t)
	ctx := context.Background()

	for i := 0; i < attempts.max; i++ {
		if _, err := v.Verify(ctx, "ECCM001", "wrong"); !errors.Is(err, model.ErrInvalidCredential) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidCredential", i, err)
		}
	}

	// Locked out now, even with the right password.
	if _, err := v.Verify(ctx, "ECCM001", "Nurse@ECCM0012024"); !errors.Is(err, model.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestVerifySuccessResetsAttempts(t *testing.T) {
	v, attempts := newTestVerifier(t)
	ctx := context.Background()

	if _, err := v.Verify(ctx, "ECCM001", "wrong"); !errors.Is(err, model.ErrInvalidCredential) {
		t.Fatalf("err = %v", err)
	}
	if _, err := v.Verify(ctx, "ECCM001", "Nurse@ECCM0012024"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if attempts.counts["ECCM001"] != 0 {
		t.Errorf("attempt count = %d after success, want 0", attempts.counts["ECCM001"])
	}
}

func TestEmail(t *testing.T) {
	if got := Email("ECCM001"); got != "eccm001@nurses-attendance.com" {
		t.Errorf("Email = %q", got)
	}
}
