package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

const baseURL = "http://localhost:8080"

// requireServer skips the test when no server is listening. These tests run
// against a live instance backed by a real database.
func requireServer(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "localhost:8080", 500*time.Millisecond)
	if err != nil {
		t.Skipf("server not reachable: %v", err)
	}
	conn.Close()
}

func getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("failed to parse response: %v\nRaw: %s", err, string(body))
		}
	}
	return resp
}

func postJSON(t *testing.T, path string, payload any, out any) *http.Response {
	t.Helper()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("failed to parse response: %v\nRaw: %s", err, string(body))
		}
	}
	return resp
}
