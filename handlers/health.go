package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/media"
	"github.com/maanas1234/Celestia-Hackathon/models"
	"github.com/maanas1234/Celestia-Hackathon/repository"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	Repo  repository.AlertRepository
	Store media.Store
	Log   *zap.SugaredLogger
}

// Health handles GET /health. It always answers 200; store_ok and
// mongo_connected carry the check results.
func (hh *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	storeOK := true
	if err := hh.Repo.Ping(ctx); err != nil {
		storeOK = false
		hh.Log.Warnf("handlers.health: %s store ping failed: %v", hh.Repo.Name(), err)
	}

	resp := models.HealthResponse{
		Status:               "ok",
		Store:                hh.Repo.Name(),
		StoreOK:              storeOK,
		MongoConnected:       storeOK && hh.Repo.Name() == config.StoreBackendMongo,
		CloudinaryConfigured: false,
	}
	if hh.Store != nil {
		resp.ImageStore = hh.Store.Name()
		resp.CloudinaryConfigured = hh.Store.Name() == config.ImageStoreCloudinary
	}
	writeJSON(w, hh.Log, http.StatusOK, resp)
}
