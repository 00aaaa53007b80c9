package shipyard

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/shutdown"
	"github.com/vango-dev/shipyard/pkg/vdom"
)

// gatedApp renders a heading, then blocks on release before the rest.
func gatedApp(cfg Config, release <-chan struct{}) *App {
	cfg.Logger = quietLogger()
	return New(cfg, action.NewRegistry(), func(context.Context) (*vdom.VNode, error) {
		return vdom.Div(
			vdom.H1(vdom.Text("Departures")),
			vdom.Async(func(ctx context.Context) (*vdom.VNode, error) {
				<-release
				return vdom.P(vdom.Text("all ships docked")), nil
			}),
		), nil
	})
}

func startServe(t *testing.T, a *App, ctx context.Context) (addr string, done <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ch := make(chan error, 1)
	go func() { ch <- a.Serve(ctx, ln) }()
	return "http://" + ln.Addr().String(), ch
}

// openStream starts a render and waits for its first row.
func openStream(t *testing.T, url string) (*http.Response, *bufio.Reader, string) {
	t.Helper()
	resp, err := http.Get(url + "/rsc")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	br := bufio.NewReader(resp.Body)
	first, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("reading first row: %v", err)
	}
	if !strings.Contains(first, "Departures") {
		t.Fatalf("first row = %q", first)
	}
	return resp, br, first
}

func TestServeDrainsOpenStreams(t *testing.T) {
	release := make(chan struct{})
	a := gatedApp(Config{ShutdownTimeout: 5 * time.Second}, release)
	url, done := startServe(t, a, context.Background())

	resp, br, first := openStream(t, url)
	defer resp.Body.Close()

	a.Coordinator().Begin("test", nil)

	select {
	case err := <-done:
		t.Fatalf("Serve returned %v while a stream was open", err)
	case <-time.After(100 * time.Millisecond):
	}
	if got := a.Coordinator().State(); got != shutdown.StateDraining {
		t.Errorf("State() = %v, want draining", got)
	}

	close(release)
	rest, err := io.ReadAll(br)
	if err != nil {
		t.Fatalf("reading rest of stream: %v", err)
	}
	payload, err := protocol.Decode(strings.NewReader(first + string(rest)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if payload.Error != "" || !strings.Contains(payload.HTML, "all ships docked") {
		t.Errorf("stream was cut short: %+v", payload)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after clean drain", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the last stream finished")
	}
	if got := a.Coordinator().State(); got != shutdown.StateTerminated {
		t.Errorf("State() = %v, want terminated", got)
	}
}

func TestServeHardTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	a := gatedApp(Config{ShutdownTimeout: 100 * time.Millisecond}, release)
	url, done := startServe(t, a, context.Background())

	resp, _, _ := openStream(t, url)
	defer resp.Body.Close()

	a.Coordinator().Begin("test", nil)

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve ignored the shutdown timeout")
	}
	if got := a.Coordinator().State(); got != shutdown.StateTerminated {
		t.Errorf("State() = %v, want terminated", got)
	}
}

func TestServeStopsWithContext(t *testing.T) {
	a := gatedApp(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	url, done := startServe(t, a, ctx)

	resp, err := http.Head(url + "/")
	if err != nil {
		t.Fatalf("HEAD error = %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop when its context ended")
	}
	if reason, _ := a.Coordinator().Reason(); reason != "context done" {
		t.Errorf("Reason() = %q", reason)
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	a := gatedApp(Config{}, nil)
	err := a.ListenAndServe(context.Background(), "256.0.0.1:bad")
	if err == nil {
		t.Fatal("ListenAndServe() succeeded on a bad address")
	}
	if !strings.Contains(err.Error(), "E502") {
		t.Errorf("error = %v, want E502", err)
	}
}
