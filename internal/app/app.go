// Package app is the demo application served by cmd/shipyard: a ship
// search list and a details panel, both driven by the request scope, plus
// the actions.js module of server actions the page posts to.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/scope"
	. "github.com/vango-dev/shipyard/pkg/vdom"
)

// App renders pages from a ship store.
type App struct {
	store  ships.Store
	logger *slog.Logger
}

// New creates an App.
func New(store ships.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		store:  store,
		logger: logger.With("component", "app"),
	}
}

// Root builds the page for the scope carried by ctx. Store reads are
// deferred into async nodes so the page shell streams first.
func (a *App) Root(ctx context.Context) (*VNode, error) {
	s := scope.OrDefault(ctx)
	shipID, selected := s.Route()

	return Div(Class("app"),
		Header(Class("app-header"),
			H1(A(Href(shipHref("", s.Search)), Text("Starship Deets"))),
		),
		Section(Class("search"),
			Form(AttrOf("method", "get"), AttrOf("action", shipHref(shipID, "")),
				Label(AttrOf("for", "search"), Text("Filter ships")),
				Input(ID("search"), Type("search"), Name(scope.SearchParam), Value(s.Search), Placeholder("Filter ships")),
			),
			Async(func(ctx context.Context) (*VNode, error) {
				return a.searchResults(ctx, s.Search, shipID)
			}),
		),
		Section(Class("details"),
			If(!selected, P(Class("empty"), Text("Select a ship"))),
			If(selected, Async(func(ctx context.Context) (*VNode, error) {
				return a.shipDetails(ctx, shipID)
			})),
		),
	), nil
}

func (a *App) searchResults(ctx context.Context, query, current string) (*VNode, error) {
	results, err := a.store.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		return P(Class("no-results"), Textf("No ships match %q", query)), nil
	}
	return Ul(Class("results"),
		Range(results, func(r ships.Summary, _ int) *VNode {
			class := "result"
			if r.ID == current {
				class = "result active"
			}
			return Li(Key(r.ID), Class(class),
				A(Href(shipHref(r.ID, query)),
					Img(Src(r.Image), AttrOf("alt", r.Name)),
					Span(Text(r.Name)),
				),
			)
		}),
	), nil
}

func (a *App) shipDetails(ctx context.Context, id string) (*VNode, error) {
	ship, err := a.store.Get(ctx, id)
	if errors.Is(err, ships.ErrNotFound) {
		return P(Class("not-found"), Textf("No ship with id %q", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ship %q: %w", id, err)
	}

	hyperdrive := "no"
	if ship.Hyperdrive {
		hyperdrive = "yes"
	}
	return Div(Class("ship"), Data("ship-id", ship.ID),
		Img(Src(ship.Image), AttrOf("alt", ship.Name)),
		H2(Text(ship.Name)),
		Form(Class("rename"), Data("action", ModulePath+"#updateShipName"),
			Input(Type("hidden"), Name("shipId"), Value(ship.ID)),
			Input(Name("name"), Value(ship.Name)),
			Button(Type("submit"), Text("Rename")),
		),
		Dl(
			Dt(Text("Top speed")), Dd(Text(strconv.Itoa(ship.TopSpeed))),
			Dt(Text("Hyperdrive")), Dd(Text(hyperdrive)),
		),
		If(len(ship.Weapons) > 0, Ul(Class("weapons"),
			Range(ship.Weapons, func(w ships.Weapon, _ int) *VNode {
				return Li(Key(w.Name),
					Strong(Text(w.Name)),
					Textf(" %s, %d damage", w.Type, w.Damage),
				)
			}),
		)),
	), nil
}

func shipHref(id, search string) string {
	u := url.URL{Path: "/" + id}
	if search != "" {
		u.RawQuery = url.Values{scope.SearchParam: {search}}.Encode()
	}
	return u.String()
}
