package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/go-chi/chi/v5"

	"github.com/RMahshie/tinfoil/internal/api/handlers"
	"github.com/RMahshie/tinfoil/internal/processing"
	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/internal/storage"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Deps bundles what the routes need. Reports may be nil.
type Deps struct {
	Engine              handlers.SessionEngine
	Receiver            handlers.Receiver
	Sweeper             processing.SweepService
	Events              handlers.EventSource
	Contestants         repository.ContestantRepository
	Results             repository.ResultRepository
	Leaderboard         repository.LeaderboardRepository
	Reports             storage.ReportStore
	SamplesPerFrequency int
	AllowedOrigins      []string
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(router chi.Router, api huma.API, deps Deps) {
	// Initialize handlers
	deviceHandler := handlers.NewDeviceHandler(deps.Receiver)
	sessionHandler := handlers.NewSessionHandler(deps.Engine, deps.Receiver, deps.Sweeper, deps.Contestants, deps.Reports, deps.SamplesPerFrequency)
	contestantHandler := handlers.NewContestantHandler(deps.Contestants)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Leaderboard, deps.Results, deps.Contestants)
	resultHandler := handlers.NewResultHandler(deps.Results, deps.Reports)
	streamHandler := handlers.NewStreamHandler(deps.Events, leaderboardHandler, deps.AllowedOrigins)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = Version
		resp.Body.Time = time.Now()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getDeviceStatus",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Get device status",
		Description: "Probes the receiver and reports whether measurements can start",
		Tags:        []string{"Device"},
	}, deviceHandler.GetDeviceStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getFrequencies",
		Method:      http.MethodGet,
		Path:        "/api/frequencies",
		Summary:     "Get frequency plan",
		Description: "Returns the frequencies measured in every session, in Hz",
		Tags:        []string{"Session"},
	}, sessionHandler.GetFrequencies)

	huma.Register(api, huma.Operation{
		OperationID: "startBaseline",
		Method:      http.MethodPost,
		Path:        "/api/session/baseline",
		Summary:     "Start baseline measurement",
		Description: "Starts a new session with the baseline phase, optionally sweeping every frequency in the background",
		Tags:        []string{"Session"},
	}, sessionHandler.StartBaseline)

	huma.Register(api, huma.Operation{
		OperationID: "startHat",
		Method:      http.MethodPost,
		Path:        "/api/session/hat",
		Summary:     "Start hat measurement",
		Description: "Starts the hat phase once the baseline is complete",
		Tags:        []string{"Session"},
	}, sessionHandler.StartHat)

	huma.Register(api, huma.Operation{
		OperationID: "measure",
		Method:      http.MethodPost,
		Path:        "/api/session/measure",
		Summary:     "Measure one frequency",
		Description: "Samples one planned frequency and records it for the active phase",
		Tags:        []string{"Session"},
	}, sessionHandler.Measure)

	huma.Register(api, huma.Operation{
		OperationID: "completePhase",
		Method:      http.MethodPost,
		Path:        "/api/session/complete",
		Summary:     "Complete a phase",
		Description: "Ends the active phase, counting unmeasured frequencies as missing",
		Tags:        []string{"Session"},
	}, sessionHandler.CompletePhase)

	huma.Register(api, huma.Operation{
		OperationID: "finalizeSession",
		Method:      http.MethodPost,
		Path:        "/api/session/finalize",
		Summary:     "Finalize session",
		Description: "Computes the result for a contestant, stores it and clears the session",
		Tags:        []string{"Session"},
	}, sessionHandler.Finalize)

	huma.Register(api, huma.Operation{
		OperationID: "resetSession",
		Method:      http.MethodPost,
		Path:        "/api/session/reset",
		Summary:     "Reset session",
		Description: "Discards all in-progress measurements",
		Tags:        []string{"Session"},
	}, sessionHandler.Reset)

	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Get session status",
		Description: "Returns the session state, recorded counts and sweep progress",
		Tags:        []string{"Session"},
	}, sessionHandler.GetSession)

	huma.Register(api, huma.Operation{
		OperationID:   "createContestant",
		Method:        http.MethodPost,
		Path:          "/api/contestants",
		Summary:       "Register contestant",
		Description:   "Creates a contestant with a unique name",
		Tags:          []string{"Contestants"},
		DefaultStatus: http.StatusCreated,
	}, contestantHandler.CreateContestant)

	huma.Register(api, huma.Operation{
		OperationID: "listContestants",
		Method:      http.MethodGet,
		Path:        "/api/contestants",
		Summary:     "List contestants",
		Tags:        []string{"Contestants"},
	}, contestantHandler.ListContestants)

	huma.Register(api, huma.Operation{
		OperationID: "getLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard",
		Summary:     "Get leaderboard",
		Description: "Ranks each contestant's best average attenuation",
		Tags:        []string{"Leaderboard"},
	}, leaderboardHandler.GetLeaderboard)

	huma.Register(api, huma.Operation{
		OperationID: "getBillboard",
		Method:      http.MethodGet,
		Path:        "/api/billboard",
		Summary:     "Get billboard",
		Description: "Returns the latest result spectrum and the top scores per hat type",
		Tags:        []string{"Leaderboard"},
	}, leaderboardHandler.GetBillboard)

	huma.Register(api, huma.Operation{
		OperationID: "getResult",
		Method:      http.MethodGet,
		Path:        "/api/results/{id}",
		Summary:     "Get result",
		Tags:        []string{"Results"},
	}, resultHandler.GetResult)

	huma.Register(api, huma.Operation{
		OperationID: "getReport",
		Method:      http.MethodGet,
		Path:        "/api/results/{id}/report",
		Summary:     "Get report link",
		Description: "Returns a pre-signed download URL for the archived JSON report",
		Tags:        []string{"Results"},
	}, resultHandler.GetReport)

	sse.Register(api, huma.Operation{
		OperationID: "streamEvents",
		Method:      http.MethodGet,
		Path:        "/api/stream",
		Summary:     "Stream session events",
		Description: "Server-sent events for measurements, resets and finalized sessions",
		Tags:        []string{"Session"},
	}, map[string]any{
		"message": models.Event{},
	}, streamHandler.StreamEvents)

	router.Get("/ws/billboard", streamHandler.ServeBillboard)
}
