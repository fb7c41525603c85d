package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campattend/internal/model"
)

// IPLocator resolves a coarse coordinate estimate from the ipapi.co JSON
// endpoint for a client address.
type IPLocator struct {
	baseURL string
	httpc   *http.Client
}

// NewIPLocator creates a client for the given base URL (https://ipapi.co).
func NewIPLocator(baseURL string) *IPLocator {
	return &IPLocator{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup queries the estimate for ip; with an empty ip the endpoint resolves
// the caller's own address.
func (l *IPLocator) Lookup(ctx context.Context, ip string) (model.GeoFix, error) {
	url := l.baseURL + "/json/"
	if ip != "" {
		url = l.baseURL + "/" + ip + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Unavailable(err.Error()), err
	}
	resp, err := l.httpc.Do(req)
	if err != nil {
		return model.Unavailable(err.Error()), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ip geolocation: unexpected status %s", resp.Status)
		return model.Unavailable(err.Error()), err
	}

	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Unavailable(err.Error()), err
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		err := fmt.Errorf("ip geolocation: no coordinates in response")
		return model.Unavailable(err.Error()), err
	}

	return model.GeoFix{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Source:    model.SourceIP,
		Message:   "approximate location detected via IP",
	}, nil
}
