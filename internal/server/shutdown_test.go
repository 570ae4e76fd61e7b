package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/drewdunne/voiceops/internal/config"
)

func loopbackConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0, // any free port
		},
	}
}

// startServer runs srv.Serve in the background and waits until it accepts
// connections.
func startServer(t *testing.T, srv *Server, ctx context.Context) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("Serve() returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}
	return errCh
}

func waitServe(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not shut down in time")
	}
}

func TestServer_Shutdown(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)
	errCh := startServer(t, srv, context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}

	waitServe(t, errCh)
}

func TestServer_ShutdownOnContextCancel(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)
	cancel()

	waitServe(t, errCh)
}

func TestServer_ShutdownHooks(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)

	var (
		mu    sync.Mutex
		order []string
	)
	hook := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	srv.OnShutdown(hook("progress"))
	srv.OnShutdown(hook("cleanup"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)
	cancel()
	waitServe(t, errCh)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "progress" || order[1] != "cleanup" {
		t.Errorf("hooks ran as %v, want [progress cleanup]", order)
	}
}

func TestServer_ShutdownWithActiveRequests(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)

	requestStarted := make(chan struct{})
	requestDone := make(chan struct{})
	srv.router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(requestStarted)
		<-requestDone
		w.Write([]byte("done"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)

	var (
		wg     sync.WaitGroup
		status int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, err := http.Get("http://" + srv.Addr() + "/slow")
		if err != nil {
			return
		}
		status = resp.StatusCode
		resp.Body.Close()
	}()

	<-requestStarted
	cancel()

	// The drain must wait for the in-flight request.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-errCh:
		t.Fatal("Serve() returned while a request was in flight")
	default:
	}

	close(requestDone)
	wg.Wait()
	waitServe(t, errCh)

	if status != http.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, http.StatusOK)
	}
}

func TestServer_Addr(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)

	if addr := srv.Addr(); addr != "" {
		t.Errorf("Addr() before start = %q, want empty", addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)

	if addr := srv.Addr(); addr == "" {
		t.Error("Addr() after start = empty, want non-empty")
	}

	cancel()
	waitServe(t, errCh)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() before start error = %v, want nil", err)
	}
}

func TestServer_ShutdownTimeout(t *testing.T) {
	cfg := loopbackConfig()
	cfg.Server.ShutdownTimeout = 100 * time.Millisecond
	srv := New(cfg, Deps{}, nil)

	requestStarted := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	srv.router.HandleFunc("/stuck", func(w http.ResponseWriter, r *http.Request) {
		close(requestStarted)
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)

	go http.Get("http://" + srv.Addr() + "/stuck")
	<-requestStarted
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(5 * time.Second):
		t.Error("drain timeout was not applied")
	}
}

func TestServer_ListenError(t *testing.T) {
	srv := New(loopbackConfig(), Deps{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := startServer(t, srv, ctx)
	defer func() {
		cancel()
		waitServe(t, errCh)
	}()

	_, portStr, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", srv.Addr(), err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := loopbackConfig()
	cfg.Server.Port = port
	if err := New(cfg, Deps{}, nil).Serve(context.Background()); err == nil {
		t.Error("Serve() on a taken port succeeded, want error")
	}
}
