package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteRequest struct {
	Symbol  string `query:"symbol" validate:"required"`
	Horizon int    `query:"n_future" default:"10" validate:"gte=1,lte=365"`
	Profile string `query:"profile" default:"moderate" validate:"oneof=conservative moderate aggressive"`
}

func bind(t *testing.T, target string) (quoteRequest, []ValidationError) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	var req quoteRequest
	verr := ReadAndValidateRequest(c, &req)
	return req, verr
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	req, verr := bind(t, "/q?symbol=THYAO")
	require.Nil(t, verr)
	assert.Equal(t, quoteRequest{Symbol: "THYAO", Horizon: 10, Profile: "moderate"}, req)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	_, verr := bind(t, "/q?n_future=500&profile=yolo")
	require.Len(t, verr, 3)

	byField := map[string]ValidationError{}
	for _, v := range verr {
		byField[v.Field] = v
	}
	assert.Equal(t, "ERR_REQUIRED", byField["symbol"].Code)
	assert.Equal(t, "symbol is required", byField["symbol"].Message)
	assert.Equal(t, "n_future must be less than or equal to 365", byField["n_future"].Message)
	assert.Equal(t, map[string]any{"max": "365"}, byField["n_future"].Params)
	assert.Equal(t, "profile must be one of: conservative, moderate, aggressive", byField["profile"].Message)

	_, verr = bind(t, "/q?symbol=X&n_future=abc")
	require.Len(t, verr, 1)
	assert.Equal(t, "ERR_BAD_REQUEST", verr[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	cause := errors.New("lookback too short")
	appErr := UnprocessableError("ERR_INSUFFICIENT_HISTORY", "lookback", "not enough bars").
		WithParam("need", 90).
		WithError(cause)
	require.NoError(t, AppErrorResponse(c, appErr))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_INSUFFICIENT_HISTORY", body.Data[0].Code)
	assert.Equal(t, float64(90), body.Data[0].Params["need"])
	assert.NotContains(t, rec.Body.String(), "lookback too short")
	assert.ErrorIs(t, appErr, cause)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
