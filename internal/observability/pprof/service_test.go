package pprof

import (
	"context"
	"net/http"
	"testing"
	"time"

	"tickwheel/pkg/logx"
)

func waitForHTTP(ctx context.Context, url string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		reqCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
		if err != nil {
			cancel()
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		cancel()
		if err == nil && resp != nil {
			_ = resp.Body.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func TestReconfigureEnableDisable(t *testing.T) {
	srv := New(Config{}, logx.Nop())
	t.Cleanup(func() {
		srv.Stop(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr = srv.Addr(); addr != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("expected pprof server to expose address")
	}

	if err := waitForHTTP(ctx, "http://"+addr+"/debug/pprof/"); err != nil {
		t.Fatalf("pprof endpoint not reachable: %v", err)
	}
	if err := waitForHTTP(ctx, "http://"+addr+"/healthz"); err != nil {
		t.Fatalf("healthz not reachable: %v", err)
	}

	// Disable and ensure the listener shuts down.
	srv.Reconfigure(ctx, Config{Enabled: false})
	if got := srv.Addr(); got != "" {
		t.Fatalf("expected pprof server to stop, still at %s", got)
	}
}

func TestStartStaysDownWhenDisabled(t *testing.T) {
	t.Parallel()
	srv := New(Config{Enabled: false, Addr: "127.0.0.1:0"}, logx.Nop())
	srv.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if got := srv.Addr(); got != "" {
		t.Fatalf("disabled server bound %s, want nothing", got)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr string
		want bool
	}{
		{addr: "127.0.0.1:6060", want: true},
		{addr: "localhost:6060", want: true},
		{addr: "[::1]:6060", want: true},
		{addr: "0.0.0.0:6060", want: false},
		{addr: ":6060", want: false},
		{addr: "192.168.1.10:6060", want: false},
		{addr: "no-port", want: false},
	}
	for _, tt := range tests {
		if got := isLoopbackAddr(tt.addr); got != tt.want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
