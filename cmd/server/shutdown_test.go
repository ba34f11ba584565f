package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/missile"
)

func TestStopOnDone_FinishesBeforeServeReturnsToCaller(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := stopOnDone(ctx, time.Second, zerolog.Nop(), srv, s.api.svc, s.sched)
	select {
	case <-stopped:
		t.Fatal("stopped before ctx ended")
	default:
	}
	cancel()

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown sequence did not finish")
	}

	// Every step has run once the channel closes.
	_, err = s.api.svc.PlaceStructure(missile.Request{Structure: "rocket.json", World: "mw"})
	if missile.CodeOf(err) != protocol.ErrShutdown {
		t.Fatalf("PlaceStructure after shutdown: %v", err)
	}
	runDone := make(chan error, 1)
	go func() { runDone <- s.sched.Run(context.Background()) }()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run on stopped scheduler: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler was not stopped")
	}
}
