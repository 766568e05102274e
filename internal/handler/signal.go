package handler

import (
	"errors"
	"net/http"
	"strconv"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/service"
	"signal-gateway/internal/validate"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type SignalResponse struct {
	Signal      domain.Action     `json:"signal" example:"buy"`
	Confidence  domain.Confidence `json:"confidence,omitempty" example:"medium"`
	Explanation string            `json:"explanation" example:"EMA9 above EMA21 with rising MACD histogram"`
}

// Signal godoc
// @Summary      Classify a market snapshot
// @Description  Validates the snapshot, consults the model, applies guard rules and returns buy, sell or hold
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        X-Auth-Token  header    string                true  "Shared secret"
// @Param        body          body      domain.SignalRequest  true  "Market snapshot"
// @Success      200  {object}  SignalResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/signal [post]
func (h *Handler) Signal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.signal")
	defer span.End()

	req, err := validate.Decode(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.signals.Analyze(ctx, req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.String("signal", string(res.Signal.Action)))

	resp := SignalResponse{
		Signal:      res.Signal.Action,
		Explanation: res.Signal.Explanation,
	}
	if h.includeConfidence {
		resp.Confidence = res.Signal.Confidence
	}
	c.JSON(http.StatusOK, resp)
}

// ListDecisions godoc
// @Summary      Recent decisions
// @Description  Lists recent pipeline decisions from the audit log, newest first
// @Tags         signals
// @Produce      json
// @Param        X-Auth-Token  header  string  true   "Shared secret"
// @Param        symbol        query   string  false  "Filter by symbol"
// @Param        limit         query   int     false  "Max rows (1-200, default 50)"
// @Success      200  {array}   domain.Decision
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/decisions [get]
func (h *Handler) ListDecisions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-decisions")
	defer span.End()

	filter := domain.DecisionFilter{Symbol: c.Query("symbol")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			abortWithError(c, http.StatusBadRequest, "validation_error", "limit must be an integer between 1 and 200")
			return
		}
		filter.Limit = limit
	}

	decisions, err := h.signals.RecentDecisions(ctx, filter)
	if errors.Is(err, service.ErrAuditLogDisabled) {
		abortWithError(c, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decisions)
}

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the active rule profile
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "profile": h.profileName})
}

func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		abortWithError(c, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		abortWithError(c, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		abortWithError(c, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error: "+err.Error())
	}
}
