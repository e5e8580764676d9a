package echoapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestqrov/lahwla/core"
)

func Test_errorHandler_shutdownErrorSignalsShutdown(t *testing.T) {
	srv, _ := setupServer(t)
	s := srv.(*server)
	s.app.GET("/integrity", func(echo.Context) error {
		return core.NewShutdownError("database integrity issue")
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/integrity", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	select {
	case sig := <-srv.ShutdownSignal():
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(time.Second):
		t.Fatal("expected a shutdown signal")
	}
}

func Test_errorHandler_plainServerErrorDoesNotSignalShutdown(t *testing.T) {
	srv, _ := setupServer(t)
	s := srv.(*server)
	s.app.GET("/boom", func(echo.Context) error {
		return errors.New("storage exploded")
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	select {
	case sig := <-srv.ShutdownSignal():
		t.Fatalf("unexpected shutdown signal: %v", sig)
	default:
	}
}
