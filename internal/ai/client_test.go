package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const cannedReply = `{"choices":[{"message":{"role":"assistant","content":"坚持得很好"}}],"usage":{"total_tokens":12}}`

func newTestCoachClient(baseURL string) *CoachClient {
	return NewCoachClient(&CoachConfig{APIKey: "test-key", BaseURL: baseURL, Model: "test-model", MaxRetries: 3})
}

func TestCoachClientReply(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(cannedReply))
	}))
	defer srv.Close()

	reply, err := newTestCoachClient(srv.URL).Reply(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if reply != "坚持得很好" {
		t.Fatalf("reply=%q", reply)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth=%q", gotAuth)
	}
}

func TestCoachClientReply_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(cannedReply))
	}))
	defer srv.Close()

	reply, err := newTestCoachClient(srv.URL).Reply(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Reply should recover from a 500: %v", err)
	}
	if reply == "" {
		t.Fatal("expected the retried reply")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestCoachClientReply_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestCoachClient(srv.URL).Reply(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("a 400 should surface as an error")
	}
	// Caller errors are final: no second attempt.
	if calls.Load() != 1 {
		t.Fatalf("calls=%d, want 1", calls.Load())
	}
}

func TestCoachClientIsConfigured(t *testing.T) {
	var nilClient *CoachClient
	if nilClient.IsConfigured() {
		t.Fatal("nil client must report unconfigured")
	}
	if NewCoachClient(&CoachConfig{}).IsConfigured() {
		t.Fatal("missing api key must report unconfigured")
	}
	if !NewCoachClient(&CoachConfig{APIKey: "k"}).IsConfigured() {
		t.Fatal("client with api key should report configured")
	}
}
