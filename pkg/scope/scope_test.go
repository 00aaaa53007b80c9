package scope

import (
	"context"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"
)

func TestCurrentOutsideScope(t *testing.T) {
	s, ok := Current(context.Background())
	if ok {
		t.Fatalf("Current() outside scope returned ok with %+v", s)
	}
	if got := OrDefault(context.Background()); got != (Scope{}) {
		t.Errorf("OrDefault() = %+v, want zero scope", got)
	}
}

func TestRunInstallsScope(t *testing.T) {
	want := Scope{RouteParam: "ship123", Search: "foo"}
	got, err := Run(context.Background(), want, func(ctx context.Context) (Scope, error) {
		s, ok := Current(ctx)
		if !ok {
			t.Fatal("scope missing inside Run")
		}
		return s, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != want {
		t.Errorf("Run() saw %+v, want %+v", got, want)
	}
}

func TestRouteOptional(t *testing.T) {
	if _, ok := (Scope{}).Route(); ok {
		t.Error("empty route param reported as present")
	}
	if id, ok := (Scope{RouteParam: "a"}).Route(); !ok || id != "a" {
		t.Errorf("Route() = %q, %v", id, ok)
	}
}

func TestNestedScopeShadows(t *testing.T) {
	outer := With(context.Background(), Scope{RouteParam: "outer"})
	inner := With(outer, Scope{RouteParam: "inner"})

	if s, _ := Current(inner); s.RouteParam != "inner" {
		t.Errorf("inner scope = %q", s.RouteParam)
	}
	if s, _ := Current(outer); s.RouteParam != "outer" {
		t.Errorf("outer scope changed to %q", s.RouteParam)
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/rsc/abc?search=enterprise", nil)
	s := FromRequest(r, "abc")
	if s.RouteParam != "abc" || s.Search != "enterprise" {
		t.Errorf("FromRequest() = %+v", s)
	}
}

// Two request trees interleaved on the same scheduler must never observe each
// other's scope, including from goroutines spawned after a suspension.
func TestConcurrentScopesIsolated(t *testing.T) {
	const rounds = 200

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		violations []string
	)
	gate := make(chan struct{})

	runRequest := func(route string) {
		defer wg.Done()
		_, _ = Run(context.Background(), Scope{RouteParam: route}, func(ctx context.Context) (struct{}, error) {
			<-gate
			var inner sync.WaitGroup
			for i := 0; i < rounds; i++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					runtime.Gosched()
					if s, _ := Current(ctx); s.RouteParam != route {
						mu.Lock()
						violations = append(violations, route+" saw "+s.RouteParam)
						mu.Unlock()
					}
				}()
			}
			inner.Wait()
			return struct{}{}, nil
		})
	}

	wg.Add(2)
	go runRequest("A")
	go runRequest("B")
	close(gate)
	wg.Wait()

	if len(violations) > 0 {
		t.Fatalf("scope leaked across requests: %v", violations[:1])
	}
}
