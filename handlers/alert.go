package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/media"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/models"
	"github.com/maanas1234/Celestia-Hackathon/realtime"
	"github.com/maanas1234/Celestia-Hackathon/repository"
)

// multipart bodies above this are spooled to disk by net/http
const maxFormMemory = 8 << 20

// Accepted layouts for the optional "time" form field. Layouts without a zone
// are read as UTC.
var submitTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	models.TimestampLayout,
}

type AlertHandler struct {
	Repo      repository.AlertRepository
	Processor *media.Processor
	Hub       *realtime.Hub
	Metrics   *metrics.Backend
	Cfg       config.ServerConfig
	Log       *zap.SugaredLogger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (ah *AlertHandler) now() time.Time {
	if ah.Now != nil {
		return ah.Now()
	}
	return time.Now()
}

// SubmitAlert handles POST /alert.
func (ah *AlertHandler) SubmitAlert(w http.ResponseWriter, r *http.Request) {
	if ah.Cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, ah.Cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			ah.reject(w, fmt.Sprintf("Invalid form body: %v", err))
			return
		}
		if err := r.ParseForm(); err != nil {
			ah.reject(w, fmt.Sprintf("Invalid form body: %v", err))
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	alertText := strings.TrimSpace(r.FormValue("alert"))
	if alertText == "" {
		ah.reject(w, "Missing required field: alert")
		return
	}
	men, err := parseCount(r, "men")
	if err != nil {
		ah.reject(w, err.Error())
		return
	}
	women, err := parseCount(r, "women")
	if err != nil {
		ah.reject(w, err.Error())
		return
	}

	frame, err := readFrame(r)
	if err != nil {
		ah.reject(w, err.Error())
		return
	}

	ts := parseSubmitTime(r.FormValue("time"), ah.now())
	alert := &models.Alert{
		ID:         uuid.NewString(),
		AlertText:  alertText,
		MenCount:   men,
		WomenCount: women,
		Timestamp:  ts,
		CreatedAt:  ah.now().UnixNano(),
	}

	ctx := r.Context()
	if len(frame) > 0 && ah.Processor != nil {
		saved, err := ah.Processor.SaveAlertImage(ctx, frame, ts)
		if err != nil {
			ah.Metrics.ImageStoreErrors.Add(1)
			ah.Log.Errorf("handlers.alert: Image store failed, keeping alert %s without image: %v", alert.ID, err)
		} else {
			ah.Metrics.ImagesStored.Add(1)
			alert.ImageRef = &saved.Key
			alert.ImageURL = &saved.URL
		}
	}

	if err := ah.Repo.Append(ctx, alert); err != nil {
		ah.Log.Errorf("handlers.alert: Failed to append alert %s to %s store: %v", alert.ID, ah.Repo.Name(), err)
		ah.discardImage(alert)
		ah.Metrics.AlertsDegraded.Add(1)
		writeJSON(w, ah.Log, http.StatusOK, models.SubmitResponse{
			Status:  models.SubmitStatusDegraded,
			Saved:   false,
			Durable: false,
		})
		return
	}

	ah.Metrics.AlertsReceived.Add(1)
	ah.Hub.AlertCreated(alert.View())
	ah.Log.Infof("handlers.alert: Stored alert %s %q (men=%d women=%d)", alert.ID, alert.AlertText, men, women)

	status := models.SubmitStatusOK
	if !ah.Repo.Durable() {
		status = models.SubmitStatusDegraded
	}
	writeJSON(w, ah.Log, http.StatusOK, models.SubmitResponse{
		Status:   status,
		Saved:    true,
		Durable:  ah.Repo.Durable(),
		ID:       alert.ID,
		ImageURL: alert.ImageURL,
	})
}

// discardImage removes an image whose record could not be appended.
func (ah *AlertHandler) discardImage(alert *models.Alert) {
	if alert.ImageRef == nil || ah.Processor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ah.Processor.Store().Delete(ctx, *alert.ImageRef); err != nil {
		ah.Log.Warnf("handlers.alert: Failed to remove orphaned image %s: %v", *alert.ImageRef, err)
	}
}

func (ah *AlertHandler) reject(w http.ResponseWriter, detail string) {
	ah.Metrics.AlertsRejected.Add(1)
	WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, detail)
}

// ListLatest handles GET /alerts/latest?limit=N.
func (ah *AlertHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	limit := ah.Cfg.DefaultLatestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if ah.Cfg.MaxLatestLimit > 0 && limit > ah.Cfg.MaxLatestLimit {
		limit = ah.Cfg.MaxLatestLimit
	}

	ah.Metrics.LatestQueries.Add(1)
	alerts, err := ah.Repo.Latest(r.Context(), limit)
	if err != nil {
		ah.Log.Errorf("handlers.alert: Failed to read latest alerts from %s store: %v", ah.Repo.Name(), err)
		WriteAPIError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Alert store is unavailable")
		return
	}

	views := make([]models.AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, a.View())
	}
	writeJSON(w, ah.Log, http.StatusOK, views)
}

// latestAlertResponse is the single-alert shape served by GET /latest.
type latestAlertResponse struct {
	Status   string  `json:"status"`
	Alert    string  `json:"alert,omitempty"`
	Men      int     `json:"men"`
	Women    int     `json:"women"`
	Time     string  `json:"time,omitempty"`
	ImageURL *string `json:"image_url"`
}

// Latest handles GET /latest, returning only the newest alert.
func (ah *AlertHandler) Latest(w http.ResponseWriter, r *http.Request) {
	alerts, err := ah.Repo.Latest(r.Context(), 1)
	if err != nil {
		ah.Log.Errorf("handlers.alert: Failed to read newest alert from %s store: %v", ah.Repo.Name(), err)
		WriteAPIError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "Alert store is unavailable")
		return
	}
	if len(alerts) == 0 {
		writeJSON(w, ah.Log, http.StatusOK, map[string]string{"status": "none"})
		return
	}
	v := alerts[0].View()
	writeJSON(w, ah.Log, http.StatusOK, latestAlertResponse{
		Status:   "ok",
		Alert:    v.AlertText,
		Men:      v.MenCount,
		Women:    v.WomenCount,
		Time:     v.Timestamp,
		ImageURL: v.ImageURL,
	})
}

func parseCount(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, fmt.Errorf("Missing required field: %s", field)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("Field %s must be a non-negative integer", field)
	}
	return n, nil
}

// readFrame returns the uploaded frame bytes, or nil when none was sent.
func readFrame(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("frame")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("Invalid frame upload: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("Failed to read frame upload: %v", err)
	}
	return data, nil
}

func parseSubmitTime(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range submitTimeLayouts {
			if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
				return t.UTC()
			}
		}
	}
	return now.UTC()
}
