package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChat_NoKey(t *testing.T) {
	c := NewChatClient("", "", "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, "sys", "hi")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with missing key; got %v", err)
	}
}

func TestChat_Success(t *testing.T) {
	var got chatCompletionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Why that approach?  "}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient("key", srv.URL+"/v1/", "", 0)
	out, err := c.Complete(context.Background(), "be brief", "I use a debugger.")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "Why that approach?" {
		t.Fatalf("unexpected reply %q", out)
	}
	if got.Model != DefaultModel {
		t.Fatalf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "I use a debugger." {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestChat_HTTPFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(401)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}, ErrUnauthorized},
		{"rate_limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(429) }, ErrRateLimited},
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500); _, _ = w.Write([]byte("oops")) }, ErrUpstream},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("not-json")) }, ErrMalformed},
		{"empty_choices", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c := NewChatClient("key", "", "model", 0)
			c.HTTPClient = &http.Client{Timeout: 1 * time.Second, Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				req.URL.Scheme = "http"
				req.URL.Host = srv.Listener.Addr().String()
				return http.DefaultTransport.RoundTrip(req)
			})}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := c.Complete(ctx, "sys", "hi")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v; got %v", tc.want, err)
			}
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	c := NewChatClient("key", "", "model", 0)
	c.HTTPClient = &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	_, err := c.Complete(context.Background(), "sys", "hi")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable; got %v", err)
	}
}

func TestChat_LimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient("key", srv.URL, "model", 1)
	if _, err := c.Complete(context.Background(), "sys", "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Complete(ctx, "sys", "second"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited; got %v", err)
	}
}

func TestChat_LimiterCancelledContextIsNotRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient("key", srv.URL, "model", 1)
	if _, err := c.Complete(context.Background(), "sys", "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "sys", "second")
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected context.Canceled; got %v", err)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	_, err = c.Complete(expired, "sys", "third")
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected context.DeadlineExceeded; got %v", err)
	}
}

func TestHalt(t *testing.T) {
	if !Halt(ErrUnauthorized) || Halt(ErrUnreachable) {
		t.Fatalf("halt classification wrong")
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
