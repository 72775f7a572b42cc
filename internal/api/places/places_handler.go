package places

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-recommendations/internal/api"
	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

const (
	maxDescriptionLength = 500
	defaultLimit         = 5
	maxLimit             = 20
)

type Handler struct {
	placesService Service
	logger        *slog.Logger
}

func NewHandler(placesService Service, logger *slog.Logger) *Handler {
	return &Handler{
		placesService: placesService,
		logger:        logger,
	}
}

// GetRecommendations handles POST /api/v1/places/recommendations.
// Validation failures are the only client-visible errors; dependency
// failures inside the pipeline come back as an empty result set.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlacesHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/recommendations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetRecommendations"))

	var req types.RecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "description is required")
		return
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		api.ErrorResponse(w, r, http.StatusBadRequest,
			fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	if req.Limit < 1 || req.Limit > maxLimit {
		api.ErrorResponse(w, r, http.StatusBadRequest,
			fmt.Sprintf("limit must be between 1 and %d", maxLimit))
		return
	}

	response := h.placesService.GetRecommendations(ctx, req.Description, req.Limit)
	api.WriteJSONResponse(w, r, http.StatusOK, response)
}

// HealthCheck handles GET /api/v1/places/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlacesHandler").Start(r.Context(), "HealthCheck")
	defer span.End()

	status := h.placesService.Health(ctx)
	code := http.StatusOK
	if !status.Connected || !status.Database {
		code = http.StatusServiceUnavailable
	}
	api.WriteJSONResponse(w, r, code, status)
}
