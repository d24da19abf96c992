package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"raftlog/pkg/appender"
	"raftlog/pkg/journal"
	"raftlog/pkg/metrics"
	"raftlog/pkg/role"
)

func newTestServer(t *testing.T, writer journal.Writer) (*role.Leader, *httptest.Server) {
	t.Helper()

	registry := prometheus.NewRegistry()
	leader := role.NewLeader(writer, nil, role.Options{
		Append: appender.Options{
			RetryDelay: time.Millisecond,
			Metrics:    metrics.NewAppend(registry),
		},
	})

	s := NewServer(leader, registry, "0")
	ts := httptest.NewServer(s.createRouter())
	t.Cleanup(ts.Close)
	t.Cleanup(leader.Stop)

	return leader, ts
}

func postAppend(t *testing.T, url string, payload []byte) (*http.Response, Response) {
	t.Helper()

	resp, err := http.Post(url+"/api/append", "application/octet-stream", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("append request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, body
}

func TestServerAppendsEntries(t *testing.T) {
	writer := journal.NewInMemory(0)
	_, ts := newTestServer(t, writer)

	for i := 1; i <= 3; i++ {
		resp, body := postAppend(t, ts.URL, []byte("payload"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
		}
		if body.Index != uint64(i) {
			t.Errorf("expected index %d, got %d", i, body.Index)
		}
		if body.Size <= 0 {
			t.Errorf("expected positive size, got %d", body.Size)
		}
	}

	if writer.LastIndex() != 3 {
		t.Errorf("expected 3 journal entries, got %d", writer.LastIndex())
	}
}

func TestServerRejectsEmptyPayload(t *testing.T) {
	_, ts := newTestServer(t, journal.NewInMemory(0))

	resp, _ := postAppend(t, ts.URL, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestServerMapsTooLargeTo413(t *testing.T) {
	_, ts := newTestServer(t, journal.NewInMemory(64))

	resp, body := postAppend(t, ts.URL, make([]byte, 1024))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (%s)", resp.StatusCode, body.Error)
	}

	// The leader keeps serving after an oversized entry.
	resp, body = postAppend(t, ts.URL, []byte("small"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after oversize rejection, got %d (%s)", resp.StatusCode, body.Error)
	}
}

func TestServerMapsClosedRoleTo503(t *testing.T) {
	leader, ts := newTestServer(t, journal.NewInMemory(0))

	leader.Stop()
	select {
	case <-leader.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("leader did not close")
	}

	resp, body := postAppend(t, ts.URL, []byte("late"))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", resp.StatusCode, body.Error)
	}
}

func TestServerReportsRoleState(t *testing.T) {
	_, ts := newTestServer(t, journal.NewInMemory(0))

	resp, err := http.Get(ts.URL + "/api/role")
	if err != nil {
		t.Fatalf("role request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Role != "active" {
		t.Errorf("expected active role, got %q", body.Role)
	}
}

func TestServerHealth(t *testing.T) {
	_, ts := newTestServer(t, journal.NewInMemory(0))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
