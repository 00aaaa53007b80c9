package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/render"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/scope"
	"github.com/vango-dev/shipyard/pkg/upload"
)

func newApp() (*App, *ships.MemoryStore) {
	store := ships.NewMemoryStore(ships.Seed())
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func renderScope(t *testing.T, a *App, s scope.Scope) string {
	t.Helper()
	ctx := scope.With(context.Background(), s)
	root, err := a.Root(ctx)
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	html, err := render.NewRenderer().RenderToString(ctx, root)
	if err != nil {
		t.Fatalf("RenderToString() error = %v", err)
	}
	return html
}

func TestRoot(t *testing.T) {
	a, _ := newApp()

	tests := []struct {
		name  string
		scope scope.Scope
		want  []string
		not   []string
	}{
		{
			name:  "no ship selected",
			scope: scope.Scope{},
			want:  []string{"Select a ship", "Galaxy Voyager", "Stellar Sparrow"},
			not:   []string{"Top speed"},
		},
		{
			name:  "ship selected with search",
			scope: scope.Scope{RouteParam: "6c86fca8b9086", Search: "gal"},
			want:  []string{"<h2>Galaxy Voyager</h2>", "Ion Cannon", `href="/6c86fca8b9086?search=gal"`, "result active", `value="gal"`},
			not:   []string{"Nebula Nomad", "Select a ship"},
		},
		{
			name:  "unknown ship",
			scope: scope.Scope{RouteParam: "missing"},
			want:  []string{"No ship with id &quot;missing&quot;"},
		},
		{
			name:  "no results",
			scope: scope.Scope{Search: "zzz"},
			want:  []string{"No ships match"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := renderScope(t, a, tt.scope)
			for _, w := range tt.want {
				if !strings.Contains(html, w) {
					t.Errorf("missing %q in\n%s", w, html)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(html, n) {
					t.Errorf("unexpected %q in\n%s", n, html)
				}
			}
		})
	}
}

func resolve(t *testing.T, a *App, export string) *action.Resolved {
	t.Helper()
	r := action.NewRegistry()
	a.Register(r)
	res, err := r.Resolve(context.Background(), ModulePath+"#"+export)
	if err != nil {
		t.Fatalf("Resolve(%s) error = %v", export, err)
	}
	return res
}

func TestSearchAction(t *testing.T) {
	a, _ := newApp()
	out, err := resolve(t, a, "search").Invoke(context.Background(), reply.Args{{Name: "0", Value: "star"}})
	if err != nil {
		t.Fatal(err)
	}
	results := out.([]ships.Summary)
	if len(results) != 1 || results[0].Name != "Star Dancer" {
		t.Errorf("search(star) = %v", results)
	}
}

func TestUpdateShipNameAction(t *testing.T) {
	a, store := newApp()
	act := resolve(t, a, "updateShipName")
	ctx := scope.With(context.Background(), scope.Scope{RouteParam: "0f9e8d7c6b5a4"})

	out, err := act.Invoke(ctx, reply.Args{{Name: "name", Value: "  Moon Dancer "}})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if out.(*ships.Ship).Name != "Moon Dancer" {
		t.Errorf("result = %+v", out)
	}
	got, _ := store.Get(context.Background(), "0f9e8d7c6b5a4")
	if got.Name != "Moon Dancer" {
		t.Errorf("stored name = %q", got.Name)
	}

	_, err = act.Invoke(ctx, reply.Args{{Name: "name", Value: " "}})
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name error = %v", err)
	}
	_, err = act.Invoke(context.Background(), reply.Args{{Name: "shipId", Value: "nope"}, {Name: "name", Value: "x"}})
	if !errors.Is(err, ships.ErrNotFound) {
		t.Errorf("unknown ship error = %v", err)
	}
}

func TestAttachPhotoAction(t *testing.T) {
	a, _ := newApp()
	store := upload.NewMemoryStore(0)
	ctx := context.Background()
	id, err := store.Save(ctx, "deck.png", "image/png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx = scope.With(ctx, scope.Scope{RouteParam: "6c86fca8b9086"})
	out, err := resolve(t, a, "attachPhoto").Invoke(ctx, reply.Args{{Name: "photo", Value: f}})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	sum := sha256.Sum256([]byte("pixels"))
	want := PhotoReceipt{
		ShipID:      "6c86fca8b9086",
		Filename:    "deck.png",
		ContentType: "image/png",
		Size:        6,
		SHA256:      hex.EncodeToString(sum[:]),
	}
	if got := out.(PhotoReceipt); got != want {
		t.Errorf("receipt = %+v, want %+v", got, want)
	}

	if _, err := resolve(t, a, "attachPhoto").Invoke(ctx, nil); err == nil {
		t.Error("missing photo accepted")
	}
}

func TestReindexIsNotInvocable(t *testing.T) {
	a, _ := newApp()
	r := action.NewRegistry()
	a.Register(r)
	_, err := r.Resolve(context.Background(), ModulePath+"#reindex")
	if !errors.Is(err, action.ErrUntrustedAction) {
		t.Errorf("Resolve(reindex) error = %v, want ErrUntrustedAction", err)
	}
}
