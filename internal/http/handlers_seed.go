package http

import (
	"log/slog"
	"net/http"
	"strconv"

	applog "txreport/internal/log"
)

const (
	seedSucceededText = "Database initialized with seed data"
	seedFailedText    = "Error initializing database"
)

type seedQueued struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

// handleInit reseeds the dataset. With async=true the request is queued for
// the worker instead.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		s.queueSeed(w, r)
		return
	}

	result, err := s.seeder.Seed(r.Context())
	if err != nil {
		_, errType := errorStatus(err)
		s.logs.LogError(r.Context(), "Seed failed", err, errType, applog.ComponentSeed, applog.OpSeed, nil)
		NewJSONResponse().Status(http.StatusInternalServerError).Text(seedFailedText).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Seed request served",
		applog.FieldRunID, result.RunID,
		applog.FieldCount, result.Count)
	NewJSONResponse().Text(seedSucceededText).Write(w)
}

func (s *Server) queueSeed(w http.ResponseWriter, r *http.Request) {
	if s.seedRequests == nil {
		ErrorResponse(http.StatusServiceUnavailable, "seed queue is not configured").Write(w)
		return
	}

	id, err := s.seedRequests.PublishSeedRequest(r.Context(), "api")
	if err != nil {
		s.logs.LogError(r.Context(), "Seed request publish failed", err, applog.ErrorTypeNetwork, applog.ComponentAMQP, applog.OpSeed, nil)
		ErrorResponse(http.StatusServiceUnavailable, "seed queue is unavailable").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Seed request queued", "seed_request_id", id)
	NewJSONResponse().
		Status(http.StatusAccepted).
		JSON(seedQueued{RequestID: id, Status: "queued"}).
		Write(w)
}
