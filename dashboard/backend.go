package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// BackendClient reads alerts from the alert backend.
type BackendClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Latest fetches up to limit alerts, newest first.
func (b *BackendClient) Latest(ctx context.Context, limit int) ([]models.AlertView, error) {
	endpoint := b.BaseURL + "/alerts/latest?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var alerts []models.AlertView
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		return nil, fmt.Errorf("malformed alert list: %w", err)
	}
	return alerts, nil
}

// ImageURL turns an alert's image_url into something a browser can load.
// Relative references are resolved against the backend.
func (b *BackendClient) ImageURL(ref *string) string {
	if ref == nil || *ref == "" {
		return ""
	}
	u, err := url.Parse(*ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	base, err := url.Parse(b.BaseURL + "/")
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// AlertsSocketURL is the backend's websocket endpoint for new alerts.
func (b *BackendClient) AlertsSocketURL() string {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/alerts"
	return u.String()
}
