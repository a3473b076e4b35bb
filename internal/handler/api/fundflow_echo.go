package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	models "FundFlow/internal/domain/models"
	"FundFlow/internal/service/eastmoney"
	"FundFlow/internal/service/llm"
	"FundFlow/internal/service/metrics"
	"FundFlow/internal/service/ratelimit"
	"FundFlow/internal/usecase"
	xhttp "FundFlow/pkg/http"
	xlogger "FundFlow/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// AnalysisPrefix groups the streaming routes; they are rate limited and
// never compressed.
const AnalysisPrefix = "/api/analysis"

// HealthInfo describes the configured backends reported by /api/health.
type HealthInfo struct {
	Title   string `json:"title"`
	Cache   string `json:"cache"`
	Archive string `json:"archive"`
	Refresh bool   `json:"refresh"`
}

// FundFlowEchoHandler serves the fund flow API.
type FundFlowEchoHandler struct {
	logger   *xlogger.Logger
	uc       *usecase.FundFlowUseCase
	rl       *ratelimit.Limiter
	refresh  *usecase.RefreshScheduler
	info     HealthInfo
	upgrader websocket.Upgrader
}

// NewFundFlowEchoHandler wires the handler. rl and refresh may be nil.
func NewFundFlowEchoHandler(
	logger *xlogger.Logger,
	uc *usecase.FundFlowUseCase,
	rl *ratelimit.Limiter,
	refresh *usecase.RefreshScheduler,
	info HealthInfo,
) *FundFlowEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	metrics.Register()
	return &FundFlowEchoHandler{
		logger:  logger,
		uc:      uc,
		rl:      rl,
		refresh: refresh,
		info:    info,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *FundFlowEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/stocks/:code", h.Stock)
	g.GET("/fundflow", h.FundFlow)
	g.GET("/fundflow/markdown", h.Markdown)
	g.GET("/llm/status", h.LLMStatus)
	g.GET("/history", h.History)
	g.DELETE("/cache/:code", h.InvalidateCache)
	g.POST("/refresh/:code", h.Refresh)

	a := e.Group(AnalysisPrefix, h.limit)
	a.GET("/stream", h.AnalysisStream)
	a.GET("/ws", h.AnalysisWS)
}

// limit rejects clients exceeding the analysis rate.
func (h *FundFlowEchoHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			h.logger.Warn("analysis rate limited", xlogger.String("remote", c.RealIP()))
			metrics.APIErrors.WithLabelValues("analysis", "ERR_RATE_LIMITED").Inc()
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many analysis requests, retry later"))
		}
		return next(c)
	}
}

func (h *FundFlowEchoHandler) Health(c echo.Context) error {
	storage := "ok"
	if err := h.uc.StorageHealth(c.Request().Context()); err != nil {
		storage = "disabled"
		if !errors.Is(err, usecase.ErrHistoryDisabled) {
			storage = "error: " + err.Error()
		}
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"backend": h.info,
		"storage": storage,
		"llm":     h.uc.LLMStatus(c.Request().Context(), false),
	})
}

func (h *FundFlowEchoHandler) Stock(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	stock, err := h.uc.Resolve(req.Code)
	if err != nil {
		return h.fail(c, "stock", err)
	}
	return xhttp.SuccessResponse(c, stock)
}

func (h *FundFlowEchoHandler) FundFlow(c echo.Context) error {
	defer metrics.ObserveSince("fundflow", time.Now())
	req := &models.FundFlowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Load(c.Request().Context(), req.Code, req.Days)
	if err != nil {
		return h.fail(c, "fundflow", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *FundFlowEchoHandler) Markdown(c echo.Context) error {
	defer metrics.ObserveSince("markdown", time.Now())
	req := &models.FundFlowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Load(c.Request().Context(), req.Code, req.Days)
	if err != nil {
		return h.fail(c, "markdown", err)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(res.Markdown))
}

func (h *FundFlowEchoHandler) LLMStatus(c echo.Context) error {
	req := &models.LLMStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.uc.LLMStatus(c.Request().Context(), req.Ping))
}

type historyResponse struct {
	Stock models.StockInfo        `json:"stock"`
	Unit  models.Unit             `json:"unit"`
	Range xhttp.TimeRange         `json:"range"`
	Rows  []map[models.Column]any `json:"rows"`
	Total int                     `json:"total"`
}

func (h *FundFlowEchoHandler) History(c echo.Context) error {
	defer metrics.ObserveSince("history", time.Now())
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := xhttp.ParseDate(req.From)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	to, err := xhttp.ParseDate(req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	stock, rows, err := h.uc.History(c.Request().Context(), req.Code, from, to, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}

	table := models.FundFlowTable{Code: stock.Code, Market: stock.Market, Unit: models.UnitYuan, Columns: models.FullColumnSet(), Rows: rows}
	resp := historyResponse{Stock: stock, Unit: models.UnitYuan, Rows: table.Records(), Total: len(rows)}
	if !from.IsZero() {
		resp.Range.From = &from
	}
	if !to.IsZero() {
		resp.Range.To = &to
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *FundFlowEchoHandler) InvalidateCache(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	stock, err := h.uc.InvalidateCache(c.Request().Context(), req.Code)
	if err != nil {
		return h.fail(c, "cache", err)
	}
	h.logger.Info("cache invalidated", xlogger.String("code", stock.Code))
	return xhttp.SuccessResponse(c, stock)
}

// Refresh queues a background reload of one stock and answers 202.
func (h *FundFlowEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	stock, err := h.refresh.Schedule(c.Request().Context(), req.Code, req.Days)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, stock)
}

// AnalysisStream pushes the table and then the analysis as server-sent
// events: one table event, delta events, then done or error.
func (h *FundFlowEchoHandler) AnalysisStream(c echo.Context) error {
	defer metrics.ObserveSince("analysis_stream", time.Now())
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	res, fragments, errs, err := h.uc.Analyze(ctx, req.Code, req.Days)
	if err != nil {
		return h.fail(c, "analysis_stream", err)
	}

	metrics.ActiveStreams.WithLabelValues("sse").Inc()
	defer metrics.ActiveStreams.WithLabelValues("sse").Dec()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(ev models.StreamEvent) error {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
			return err
		}
		w.Flush()
		return nil
	}

	if err := h.relay(ctx, res, fragments, errs, send); err != nil {
		h.logger.Debug("analysis stream closed", xlogger.String("code", res.Stock.Code), xlogger.Error(err))
	}
	return nil
}

// AnalysisWS serves the same events as AnalysisStream over a WebSocket, one
// JSON message per event.
func (h *FundFlowEchoHandler) AnalysisWS(c echo.Context) error {
	defer metrics.ObserveSince("analysis_ws", time.Now())
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.ActiveStreams.WithLabelValues("ws").Inc()
	defer metrics.ActiveStreams.WithLabelValues("ws").Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// the client only talks to close the socket
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev models.StreamEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(ev)
	}

	res, fragments, errs, err := h.uc.Analyze(ctx, req.Code, req.Days)
	if err != nil {
		app := toAppError(err)
		metrics.APIErrors.WithLabelValues("analysis_ws", app.Code).Inc()
		_ = send(models.StreamEvent{Type: "error", Data: app.Message})
		return nil
	}

	if err := h.relay(ctx, res, fragments, errs, send); err != nil {
		h.logger.Debug("analysis socket closed", xlogger.String("code", res.Stock.Code), xlogger.Error(err))
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return nil
}

// relay forwards a stream to send. A failed send cancels nothing by itself;
// the caller's context owns the stream lifetime.
func (h *FundFlowEchoHandler) relay(
	ctx context.Context,
	res *models.FundFlowResult,
	fragments <-chan string,
	errs <-chan error,
	send func(models.StreamEvent) error,
) error {
	var sendErr error
	if err := send(models.StreamEvent{Type: "table", Data: res.Markdown}); err != nil {
		sendErr = err
	}
	for f := range fragments {
		if sendErr != nil || ctx.Err() != nil {
			continue
		}
		if err := send(models.StreamEvent{Type: "delta", Data: f}); err != nil {
			sendErr = err
		}
	}
	if err := <-errs; err != nil {
		if sendErr == nil && ctx.Err() == nil {
			app := toAppError(err)
			metrics.APIErrors.WithLabelValues("analysis", app.Code).Inc()
			h.logger.Error("analysis failed", xlogger.String("code", res.Stock.Code), xlogger.Error(err))
			return send(models.StreamEvent{Type: "error", Data: err.Error()})
		}
		return err
	}
	if sendErr != nil {
		return sendErr
	}
	return send(models.StreamEvent{Type: "done"})
}

// fail maps err onto the AppError envelope and records it.
func (h *FundFlowEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	app := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, app.Code).Inc()
	if app.Status >= http.StatusInternalServerError && app.Status != http.StatusServiceUnavailable {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, app)
}

func toAppError(err error) *xhttp.AppError {
	var app *xhttp.AppError
	switch {
	case errors.As(err, &app):
		return app
	case errors.Is(err, eastmoney.ErrInvalidCode):
		return xhttp.NewAppError("ERR_INVALID_CODE", "code", "stock code must contain digits", http.StatusBadRequest)
	case errors.Is(err, eastmoney.ErrNoData):
		return xhttp.NewAppError("ERR_NO_DATA", "code", "no fund flow data for this stock", http.StatusNotFound).WithError(err)
	case errors.Is(err, llm.ErrNotConfigured):
		msg := err.Error()
		if _, missing, ok := strings.Cut(msg, "missing "); ok {
			return xhttp.ServiceUnavailableError("analysis is not configured").
				WithParam("missing", strings.Split(missing, ", "))
		}
		return xhttp.ServiceUnavailableError("analysis is not configured")
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return xhttp.ServiceUnavailableError("history storage is not configured")
	case errors.Is(err, usecase.ErrRefreshDisabled):
		return xhttp.ServiceUnavailableError("background refresh is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "upstream timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("fund flow request failed").WithError(err)
	}
}
