package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/business/web/errs"
	"github.com/ArthurBonsu/tinc-blockchain/business/web/mid"
	"github.com/ArthurBonsu/tinc-blockchain/business/web/validate"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/web"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name string `json:"name" validate:"required"`
}

func newApp(t *testing.T) (*web.App, chan os.Signal) {
	shutdown := make(chan os.Signal, 1)
	log := zap.NewNop().Sugar()

	app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Metrics(), mid.Cors("*"), mid.Panics())

	app.Handle(http.MethodGet, "v1", "/echo/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, payload{Name: web.Param(r, "name")}, http.StatusOK)
	})
	app.Handle(http.MethodPost, "v1", "/echo", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var p payload
		if err := web.Decode(r, &p); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return validate.Check(p)
	})
	app.Handle(http.MethodGet, "v1", "/missing", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("block not found"), http.StatusNotFound)
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})
	app.Handle(http.MethodGet, "v1", "/integrity", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	})

	return app, shutdown
}

func do(t *testing.T, app http.Handler, method string, path string, body string) (*httptest.ResponseRecorder, errs.Response) {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)

	var er errs.Response
	if w.Code >= http.StatusBadRequest {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&er))
	}
	return w, er
}

func TestRoutes(t *testing.T) {
	app, shutdown := newApp(t)

	w, _ := do(t, app, http.MethodGet, "/v1/echo/alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.JSONEq(t, `{"name":"alice"}`, w.Body.String())

	w, er := do(t, app, http.MethodPost, "/v1/echo", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "data validation error", er.Error)
	require.Contains(t, er.Fields, "name")

	w, er = do(t, app, http.MethodPost, "/v1/echo", `{"other":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, er.Error)

	w, er = do(t, app, http.MethodGet, "/v1/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "block not found", er.Error)

	w, er = do(t, app, http.MethodGet, "/v1/panic", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, http.StatusText(http.StatusInternalServerError), er.Error)

	require.Len(t, shutdown, 0)
	do(t, app, http.MethodGet, "/v1/integrity", "")
	require.Len(t, shutdown, 1)
}
