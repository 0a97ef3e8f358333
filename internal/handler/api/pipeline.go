package api

import (
	"errors"

	models "QuantPulse/internal/domain/models"
	"QuantPulse/internal/services/inference"
	"QuantPulse/internal/usecase"
	xhttp "QuantPulse/pkg/http"
	xlogger "QuantPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineHandler exposes the ingestion trigger and the inference router.
type PipelineHandler struct {
	logger *xlogger.Logger
	cycle  *usecase.IngestionCycle
	infer  *usecase.InferenceUseCase
}

func NewPipelineHandler(logger *xlogger.Logger, cycle *usecase.IngestionCycle, infer *usecase.InferenceUseCase) *PipelineHandler {
	return &PipelineHandler{logger: logger, cycle: cycle, infer: infer}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/ingest", h.Ingest)
	g.POST("/inference", h.Inference)
}

// Ingest runs one on-demand ingestion cycle for the requested symbols and
// exchanges. Per-feed failures show up in feedStatus, not as an HTTP error.
func (h *PipelineHandler) Ingest(c echo.Context) error {
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.cycle.Run(c.Request().Context(), req.Symbols, req.Exchanges)
	if err != nil {
		h.logger.Error("ingest cycle error", xlogger.Error(err))
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Inference dispatches predict, batch_predict, or stream_predict.
func (h *PipelineHandler) Inference(c echo.Context) error {
	req := &models.InferenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if verr := validateInferenceRequest(req); verr != nil {
		return xhttp.BadRequestResponse(c, []*xhttp.AppError{verr})
	}

	res, err := h.infer.Route(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, inference.ErrNoActiveModel) {
			return xhttp.BadRequestResponse(c, []*xhttp.AppError{
				xhttp.BadRequestError("no active model configured"),
			})
		}
		h.logger.Error("inference error",
			xlogger.String("action", req.Action),
			xlogger.Error(err),
		)
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func validateInferenceRequest(req *models.InferenceRequest) *xhttp.AppError {
	switch req.Action {
	case "predict":
		if req.Symbol == "" {
			return xhttp.BadRequestError("symbol is required for predict")
		}
	case "batch_predict":
		if len(req.Symbols) == 0 {
			return xhttp.BadRequestError("symbols are required for batch_predict")
		}
		if len(req.Symbols) > 100 {
			return xhttp.BadRequestError("at most 100 symbols per batch")
		}
	case "stream_predict":
		if req.Symbol == "" {
			return xhttp.BadRequestError("symbol is required for stream_predict")
		}
		if len(req.Ticks) == 0 {
			return xhttp.BadRequestError("ticks are required for stream_predict")
		}
		if len(req.Ticks) > 1000 {
			return xhttp.BadRequestError("at most 1000 ticks per stream request")
		}
	}
	return nil
}
