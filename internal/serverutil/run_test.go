package serverutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRunRequiresServer(t *testing.T) {
	if err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected error when no server is configured")
	}
}

func TestRunRejectsPartialTLSConfig(t *testing.T) {
	cfg := Config{
		Server: &http.Server{Addr: "127.0.0.1:0"},
		TLS:    TLSConfig{CertFile: "cert.pem"},
	}
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for cert without key")
	}
}

func TestRunServesUntilContextCancelled(t *testing.T) {
	server := &http.Server{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "ok")
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Server: server, Ready: ready, ShutdownTimeout: time.Second})
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunFailsOnUnusableAddress(t *testing.T) {
	server := &http.Server{Addr: "256.256.256.256:99999"}
	if err := Run(context.Background(), Config{Server: server}); err == nil {
		t.Fatal("expected listen error")
	}
}
