package cloudinary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUploadBytes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		for _, field := range []string{"timestamp", "api_key", "signature", "folder"} {
			if r.FormValue(field) == "" {
				t.Errorf("missing form field %s", field)
			}
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Write([]byte(`{"public_id": "camp/abc", "secure_url": "https://res.cloudinary.com/demo/camp/abc.jpg"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "camp")
	c.BaseURL = srv.URL

	result, err := c.UploadBytes(context.Background(), []byte("jpeg bytes"), "register.jpg")
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if result.SecureURL != "https://res.cloudinary.com/demo/camp/abc.jpg" {
		t.Errorf("secure url = %q", result.SecureURL)
	}
	if gotPath != "/v1_1/demo/image/upload" {
		t.Errorf("upload path = %s", gotPath)
	}
}

func TestUploadBytesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Invalid signature"}}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL

	if _, err := c.UploadBytes(context.Background(), []byte("x"), "a.jpg"); err == nil {
		t.Fatal("expected error on 401 response")
	}
}

func TestSignDeterministic(t *testing.T) {
	c := New("demo", "key", "secret", "")
	params := map[string]string{
		"timestamp": "1700000000",
		"folder":    "camp",
		"api_key":   "key", // excluded from the signature
	}
	first := c.sign(params)
	second := c.sign(params)
	if first != second {
		t.Errorf("sign not deterministic: %s vs %s", first, second)
	}
	if len(first) != 40 {
		t.Errorf("signature length = %d, want 40 hex chars", len(first))
	}

	params["api_key"] = "other-key"
	if c.sign(params) != first {
		t.Error("api_key participated in the signature")
	}
}
