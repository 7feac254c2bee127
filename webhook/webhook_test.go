package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/tendercrawl/models"
)

func TestDeliver_Signed(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	event := NewEvent("run-1", Summary{Pages: 2, Records: 5, DetailsEnriched: 2})
	require.NoError(t, Deliver(context.Background(), srv.URL, "secret", event))

	require.Equal(t, "sha256="+Sign("secret", gotBody), gotSig)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	require.Equal(t, EventCompleted, decoded["type"])
	require.Equal(t, "run-1", decoded["run_id"])
}

func TestDeliver_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, Deliver(context.Background(), srv.URL, "", NewEvent(NewRunID(), Summary{})))
}

func TestNewEvent_Failed(t *testing.T) {
	event := NewEvent("run-2", Summary{Error: &models.ErrorDetail{Code: models.ErrCodeLogin, Message: "login failed"}})
	require.Equal(t, EventFailed, event.Type)
}

func TestDeliverWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	delays := []time.Duration{0, time.Millisecond, time.Millisecond}
	require.NoError(t, DeliverWithRetry(context.Background(), srv.URL, "", NewEvent("run-3", Summary{}), delays, logger))
	require.EqualValues(t, 3, calls.Load())
}

func TestDeliverWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := DeliverWithRetry(context.Background(), srv.URL, "", NewEvent("run-4", Summary{}), []time.Duration{0, 0}, logger)
	require.ErrorContains(t, err, "status 500")
}

func TestDeliverWithRetry_CancelledDuringBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := DeliverWithRetry(ctx, srv.URL, "", NewEvent("run-5", Summary{}), []time.Duration{0, time.Hour}, logger)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualValues(t, 1, calls.Load())
}
