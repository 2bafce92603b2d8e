package alertclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/detection"
	"github.com/maanas1234/Celestia-Hackathon/handlers"
	"github.com/maanas1234/Celestia-Hackathon/media"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/models"
	"github.com/maanas1234/Celestia-Hackathon/realtime"
	"github.com/maanas1234/Celestia-Hackathon/repository"
	"github.com/maanas1234/Celestia-Hackathon/rules"
)

func newBackend(t *testing.T) (*httptest.Server, repository.AlertRepository) {
	t.Helper()
	log := zap.NewNop().Sugar()
	repo := repository.NewMemoryAlertRepository(50)
	store, err := media.NewLocalStorage(t.TempDir(), "", log)
	require.NoError(t, err)

	cfg := config.ServerConfig{DefaultLatestLimit: 20, MaxLatestLimit: 200, MaxUploadBytes: 1 << 20}
	m := metrics.NewBackend()
	rt := &handlers.Router{
		Alerts: &handlers.AlertHandler{
			Repo:      repo,
			Processor: media.NewProcessor(store, 1280, log),
			Hub:       realtime.NewHub(log),
			Metrics:   m,
			Cfg:       cfg,
			Log:       log,
		},
		Images:             &handlers.ImageServer{Store: store, Log: log},
		Health:             &handlers.HealthHandler{Repo: repo, Store: store, Log: log},
		CORSAllowedOrigins: []string{"*"},
		Log:                log,
	}
	srv := httptest.NewServer(rt.Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestClientSendReachesBackend(t *testing.T) {
	srv, repo := newBackend(t)
	client := NewClient(srv.URL+"/", 4*time.Second)

	ts := time.Date(2024, 7, 4, 22, 15, 0, 0, time.UTC)
	resp, err := client.Send(context.Background(), models.AlertEvent{
		AlertText:  "Single woman with multiple men",
		MenCount:   3,
		WomenCount: 1,
		Timestamp:  ts,
		Image:      []byte("raw-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Saved)
	require.NotNil(t, resp.ImageURL)

	latest, err := repo.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Single woman with multiple men", latest[0].AlertText)
	assert.Equal(t, 3, latest[0].MenCount)
	assert.True(t, ts.Equal(latest[0].Timestamp))
}

func TestClientSendWithoutImage(t *testing.T) {
	var gotFrame bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("frame")
		gotFrame = err == nil
		assert.Equal(t, "Single woman at night", r.FormValue("alert"))
		assert.Equal(t, "0", r.FormValue("men"))
		assert.Equal(t, "1", r.FormValue("women"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","saved":true,"durable":true,"image_url":null}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, time.Second).Send(context.Background(), models.AlertEvent{
		AlertText: "Single woman at night", WomenCount: 1, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, gotFrame)
	assert.Equal(t, models.SubmitStatusOK, resp.Status)
}

func TestClientSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Send(context.Background(), models.AlertEvent{AlertText: "a", WomenCount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClientSendTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Send(context.Background(), models.AlertEvent{AlertText: "a", WomenCount: 1})
	assert.Error(t, err)
}

type fakeSubmitter struct {
	events []models.AlertEvent
	accept bool
}

func (f *fakeSubmitter) Submit(ev models.AlertEvent) bool {
	if f.accept {
		f.events = append(f.events, ev)
	}
	return f.accept
}

func TestDispatcherCooldown(t *testing.T) {
	sub := &fakeSubmitter{accept: true}
	m := metrics.NewClient()
	d := NewDispatcher(rules.Default(), 2*time.Second, sub, m, zap.NewNop().Sugar())

	counts := detection.FrameCounts{Men: 2, Women: 1}
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	text, ok := d.Decide(counts, t0)
	require.True(t, ok)

	encodes := 0
	encode := func() ([]byte, error) { encodes++; return []byte("jpg"), nil }

	assert.True(t, d.Dispatch(text, counts, t0, encode))
	assert.False(t, d.Dispatch(text, counts, t0.Add(500*time.Millisecond), encode))
	assert.True(t, d.Dispatch(text, counts, t0.Add(2500*time.Millisecond), encode))

	assert.Equal(t, 2, encodes, "suppressed alerts are not encoded")
	require.Len(t, sub.events, 2)
	assert.Equal(t, "Single woman with multiple men", sub.events[0].AlertText)
	assert.Equal(t, []byte("jpg"), sub.events[0].Image)
	assert.EqualValues(t, 3, m.AlertsRaised.Load())
	assert.EqualValues(t, 1, m.AlertsSuppressed.Load())
}

func TestDispatcherWithoutCooldown(t *testing.T) {
	sub := &fakeSubmitter{accept: true}
	d := NewDispatcher(rules.Default(), 0, sub, metrics.NewClient(), zap.NewNop().Sugar())
	now := time.Now()
	for i := 0; i < 5; i++ {
		assert.True(t, d.Dispatch("x", detection.FrameCounts{Women: 1}, now, nil))
	}
	assert.Len(t, sub.events, 5)
}

func TestDispatcherEncodeFailureSendsWithoutImage(t *testing.T) {
	sub := &fakeSubmitter{accept: true}
	d := NewDispatcher(rules.Default(), 0, sub, metrics.NewClient(), zap.NewNop().Sugar())
	d.Dispatch("x", detection.FrameCounts{Women: 1}, time.Now(), func() ([]byte, error) {
		return nil, io.ErrUnexpectedEOF
	})
	require.Len(t, sub.events, 1)
	assert.Empty(t, sub.events[0].Image)
}

func TestDispatcherNightRuleUsesLocalHour(t *testing.T) {
	d := NewDispatcher(rules.Default(), 0, &fakeSubmitter{}, metrics.NewClient(), zap.NewNop().Sugar())
	counts := detection.FrameCounts{Men: 0, Women: 1}

	_, ok := d.Decide(counts, time.Date(2024, 1, 1, 19, 59, 0, 0, time.Local))
	assert.False(t, ok)
	text, ok := d.Decide(counts, time.Date(2024, 1, 1, 20, 0, 0, 0, time.Local))
	assert.True(t, ok)
	assert.Equal(t, "Single woman at night", text)
}
