package healthsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct{ quitting bool }

func (f fakeSource) IsQuitting() bool { return f.quitting }

func TestHealthzNotReady(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	s := New(addr, "supervisor-engine", fakeSource{})
	go func() { _ = s.ListenAndServe() }()
	defer s.Shutdown(context.Background())
	waitUp(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "starting", body.Status)
}

func TestHealthzReadyAndQuitting(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	s := New(addr, "supervisor-engine", fakeSource{quitting: true})
	s.SetReady()
	go func() { _ = s.ListenAndServe() }()
	defer s.Shutdown(context.Background())
	waitUp(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "quitting", body.Status)
	assert.Equal(t, "supervisor-engine", body.Data.Service)
}

func waitUp(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := http.Get("http://" + addr + "/healthz"); err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up", addr)
}
