package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientExtractSuccess(t *testing.T) {
	var gotReq extractRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write([]byte(`[{"track_number":1,"title":"First"},{"track_number":2,"title":"Second"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result, err := client.Extract(context.Background(), "data:image/jpeg;base64,Zm9v", true)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(result.Songs))
	}
	if gotReq.ImageBase64 != "data:image/jpeg;base64,Zm9v" {
		t.Errorf("image not forwarded: %q", gotReq.ImageBase64)
	}
	if !gotReq.ExtractMetadata {
		t.Errorf("extractMetadata flag not forwarded")
	}
}

func TestClientExtractNoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	if _, err := client.Extract(context.Background(), "data:image/png;base64,Zm9v", false); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
}

func TestClientExtractStatusClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantKind  Kind
		wantRetry bool
		wantMsg   string
	}{
		{"rate limited", 429, `{"error":"Rate limit exceeded. Please try again later."}`, KindRateLimited, true, "Rate limit exceeded. Please try again later."},
		{"quota exhausted", 402, `{"error":"API credits depleted."}`, KindQuotaExhausted, false, "API credits depleted."},
		{"server error", 500, "internal server error", KindTransport, true, "internal server error"},
		{"bad gateway", 502, `{"error":"upstream unavailable"}`, KindTransport, true, "upstream unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "k", 5*time.Second)
			_, err := client.Extract(context.Background(), "data:image/jpeg;base64,Zm9v", false)
			if err == nil {
				t.Fatalf("expected error for status %d", tc.status)
			}

			var ee *Error
			if !errors.As(err, &ee) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ee.Kind != tc.wantKind {
				t.Errorf("kind = %v, want %v", ee.Kind, tc.wantKind)
			}
			if ee.Status != tc.status {
				t.Errorf("status = %d, want %d", ee.Status, tc.status)
			}
			if ee.Retryable() != tc.wantRetry {
				t.Errorf("retryable = %v, want %v", ee.Retryable(), tc.wantRetry)
			}
			if ee.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", ee.Message, tc.wantMsg)
			}
		})
	}
}

func TestClientExtractTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", 20*time.Millisecond)
	_, err := client.Extract(context.Background(), "data:image/jpeg;base64,Zm9v", false)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := KindOf(err); kind != KindTransport {
		t.Errorf("timeout classified as %v, want transport", kind)
	}
}

func TestClientExtractUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/scan-album", "k", time.Second)
	_, err := client.Extract(context.Background(), "data:image/jpeg;base64,Zm9v", false)
	if err == nil {
		t.Fatal("expected connection error")
	}

	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !ee.Retryable() {
		t.Errorf("connection failures should be retryable")
	}
}
