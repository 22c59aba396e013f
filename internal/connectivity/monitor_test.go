package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckNotifiesOnlyOnTransitions(t *testing.T) {
	online := false
	m := NewMonitor(func(context.Context) bool { return online }, time.Minute, slog.New(slog.DiscardHandler))

	var got []bool
	m.Subscribe(func(state bool) { got = append(got, state) })

	ctx := context.Background()

	// Starts offline; an offline probe result is not a transition.
	m.Check(ctx)
	if len(got) != 0 {
		t.Fatalf("notifications = %v, want none", got)
	}

	online = true
	m.Check(ctx)
	m.Check(ctx)
	online = false
	m.Check(ctx)

	want := []bool{true, false}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", got, want)
		}
	}
	if m.Online() {
		t.Error("monitor should report offline")
	}
}

func TestStartProbesImmediately(t *testing.T) {
	probed := make(chan struct{}, 1)
	m := NewMonitor(func(context.Context) bool {
		select {
		case probed <- struct{}{}:
		default:
		}
		return true
	}, time.Hour, slog.New(slog.DiscardHandler))

	m.Start(context.Background())
	defer m.Stop()

	select {
	case <-probed:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not probe before the first tick")
	}
}

func TestHTTPProbe(t *testing.T) {
	// Any HTTP response means reachable, even an error status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if !HTTPProbe(srv.URL)(context.Background()) {
		t.Error("reachable server should probe online")
	}

	srv.Close()
	if HTTPProbe(srv.URL)(context.Background()) {
		t.Error("closed server should probe offline")
	}
}
