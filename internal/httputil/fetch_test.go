// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaamos-labs/watchdog/pkg/types"
)

func init() {
	// Use tiny base delays so retry tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
	TransportRetryDelay = 1 * time.Millisecond
}

// allowLoopback lets a test talk to httptest servers on 127.0.0.1 while
// keeping the private ranges blocked.
func allowLoopback(t *testing.T) {
	t.Helper()
	old := blockedNets
	blockedNets = mustParseCIDRs(
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
	)
	t.Cleanup(func() { blockedNets = old })
}

func newTestFetcher(cfg types.HTTPConfig) *Fetcher {
	// High rate so tests never sit in the limiter.
	return NewFetcher(cfg, NewRateLimiter(1000))
}

func TestFetch_Success(t *testing.T) {
	allowLoopback(t)

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{UserAgent: "watchdog-test/1.0"})
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("<html>ok</html>"), resp.Body)
	assert.Equal(t, srv.URL, resp.FinalURL)
	assert.Equal(t, "watchdog-test/1.0", gotUA.Load())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	allowLoopback(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{})
	_, err := f.Fetch(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_RetriesServiceUnavailable(t *testing.T) {
	allowLoopback(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{})
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), resp.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	allowLoopback(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_RetriesTransportErrors(t *testing.T) {
	allowLoopback(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		// Drop the connection mid-request to simulate a transport fault.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_RejectsUnsafeURL(t *testing.T) {
	f := newTestFetcher(types.HTTPConfig{})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1/doc.pdf")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestFetch_RejectsRedirectToPrivateAddress(t *testing.T) {
	allowLoopback(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Redirect(w, r, "http://10.255.0.9/secret", http.StatusFound)
	}))
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrRedirectBlocked)
	// The redirect is blocked before the private address is contacted,
	// and security failures are not retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_FollowsSafeRedirect(t *testing.T) {
	allowLoopback(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(types.HTTPConfig{})
	resp, err := f.Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, []byte("landed"), resp.Body)
	assert.Equal(t, srv.URL+"/final", resp.FinalURL)
}

func TestResponse_IsPDF(t *testing.T) {
	pdfHeader := http.Header{}
	pdfHeader.Set("Content-Type", "application/pdf")

	htmlHeader := http.Header{}
	htmlHeader.Set("Content-Type", "text/html")

	assert.True(t, (&Response{Header: pdfHeader, Body: []byte("x")}).IsPDF())
	assert.True(t, (&Response{Header: htmlHeader, Body: []byte("%PDF-1.7 ...")}).IsPDF())
	assert.False(t, (&Response{Header: htmlHeader, Body: []byte("<html></html>")}).IsPDF())
}
