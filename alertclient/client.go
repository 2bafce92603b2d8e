// Package alertclient delivers alerts from the camera client to the backend.
package alertclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// Client posts alerts to POST {BaseURL}/alert.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send uploads one alert as a multipart form. Any non-2xx answer is an error.
func (c *Client) Send(ctx context.Context, event models.AlertEvent) (models.SubmitResponse, error) {
	body, contentType, err := encodeAlertForm(event)
	if err != nil {
		return models.SubmitResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/alert", body)
	if err != nil {
		return models.SubmitResponse{}, fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.SubmitResponse{}, fmt.Errorf("alert upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.SubmitResponse{}, fmt.Errorf("backend answered %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out models.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.SubmitResponse{}, fmt.Errorf("failed to decode backend response: %w", err)
	}
	return out, nil
}

func encodeAlertForm(event models.AlertEvent) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"alert", event.AlertText},
		{"men", strconv.Itoa(event.MenCount)},
		{"women", strconv.Itoa(event.WomenCount)},
	}
	if !event.Timestamp.IsZero() {
		fields = append(fields, [2]string{"time", event.Timestamp.Format(time.RFC3339)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	if len(event.Image) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="frame"; filename="frame.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create frame part: %w", err)
		}
		if _, err := part.Write(event.Image); err != nil {
			return nil, "", fmt.Errorf("failed to write frame part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish alert form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
