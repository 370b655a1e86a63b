package teams

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUserTeams_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/equipos/user/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"nombre":"Soporte"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/equipos/", time.Second)
	got, err := c.UserTeams(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `[{"id":1,"nombre":"Soporte"}]` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestUserTeams_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).UserTeams(context.Background(), 1); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestUserTeams_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).UserTeams(context.Background(), 1); err == nil {
		t.Fatal("expected error on invalid JSON")
	}
}

func TestUserTeams_Timeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(done)

	start := time.Now()
	if _, err := NewClient(srv.URL, 50*time.Millisecond).UserTeams(context.Background(), 1); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced, took %v", time.Since(start))
	}
}
