package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"FundFlow/pkg/http/middleware"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type daysRequest struct {
	Code string `param:"code" json:"-" validate:"required"`
	Days int    `query:"days" json:"days" default:"30" validate:"gte=10,lte=50"`
}

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/flow/:code", func(c echo.Context) error {
		var req daysRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req.Days)
	})
	e.GET("/boom", func(c echo.Context) error {
		return ServiceUnavailableError("llm not configured").WithParam("missing", "api_key")
	})
	e.GET("/plain", func(c echo.Context) error {
		return errors.New("hidden")
	})
	return e
}

func TestReadAndValidateRequest(t *testing.T) {
	e := newEcho()

	rec := serve(e, http.MethodGet, "/flow/000001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Data int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 30, ok.Data)

	rec = serve(e, http.MethodGet, "/flow/000001?days=5", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad APIResponse400Err
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 1)
	assert.Equal(t, "days", bad.Data[0].Field)
	assert.Equal(t, "ERR_GTE", bad.Data[0].Code)
	assert.Equal(t, "10", bad.Data[0].Params["min"])
}

func TestErrorHandler(t *testing.T) {
	e := newEcho()

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status int         `json:"status"`
		Data   []*AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_UNAVAILABLE", body.Data[0].Code)
	assert.Equal(t, "api_key", body.Data[0].Params["missing"])

	rec = serve(e, http.MethodGet, "/plain", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hidden")

	rec = serve(e, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":404`)
}

func TestZstdSkipsPrefixes(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Zstd(middleware.SkipPrefixes("/api/analysis")))
	e.GET("/api/flow", func(c echo.Context) error { return c.String(http.StatusOK, "rows") })
	e.GET("/api/analysis", func(c echo.Context) error { return c.String(http.StatusOK, "stream") })
	accept := map[string]string{echo.HeaderAcceptEncoding: "gzip, zstd"}

	rec := serve(e, http.MethodGet, "/api/flow", accept)
	require.Equal(t, "zstd", rec.Header().Get(echo.HeaderContentEncoding))
	dec, err := zstd.NewReader(rec.Body)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "rows", string(plain))

	rec = serve(e, http.MethodGet, "/api/analysis", accept)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentEncoding))
	assert.Equal(t, "stream", rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/flow", nil)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentEncoding))
	assert.Equal(t, "rows", rec.Body.String())
}
