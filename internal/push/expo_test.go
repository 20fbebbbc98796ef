package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPayload(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	s := NewExpoSender(srv.URL, discardLogger())
	err := s.Send(context.Background(), "ExponentPushToken[xyz]", "Quizify",
		"What year?\n\nA) 1914\nB) 1918\nC) 1939\nD) 1945",
		map[string]any{"questionId": 3, "correct_answer": "1914"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.To != "ExponentPushToken[xyz]" || got.Title != "Quizify" {
		t.Errorf("unexpected message %+v", got)
	}
	if got.CategoryID != "quiz" || got.Sound != "default" {
		t.Errorf("category/sound = %q/%q", got.CategoryID, got.Sound)
	}
	if got.Data["questionId"] != float64(3) || got.Data["correct_answer"] != "1914" {
		t.Errorf("data payload = %v", got.Data)
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewExpoSender(srv.URL, discardLogger())
	if err := s.Send(context.Background(), "bad", "t", "b", nil); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	s := NewExpoSender(srv.URL, discardLogger())
	if err := s.Send(context.Background(), "tok", "t", "b", nil); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestNewExpoSenderDefaultEndpoint(t *testing.T) {
	s := NewExpoSender("", discardLogger())
	if s.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want default", s.endpoint)
	}
}
