package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/shipyard/internal/ships"
	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/scope"
)

// ModulePath is the reference module the page's forms post to.
const ModulePath = "actions.js"

// ErrNameRequired is returned by updateShipName for a blank name.
var ErrNameRequired = errors.New("app: ship name is required")

// Actions returns the actions.js module. reindex is deliberately exported
// without the server-action tag and must stay uninvocable.
func (a *App) Actions() action.Module {
	return action.Module{
		"search":         action.Server(a.search),
		"updateShipName": action.Server(a.updateShipName),
		"attachPhoto":    action.Server(a.attachPhoto),
		"reindex":        action.Func(a.reindex),
	}
}

// Register adds the actions.js module to r.
func (a *App) Register(r *action.Registry) {
	r.RegisterModule(ModulePath, a.Actions())
}

// search returns matching summaries for the first argument or "query".
func (a *App) search(ctx context.Context, args reply.Args) (any, error) {
	query := args.String("query")
	if query == "" {
		if s, ok := args.At(0).(string); ok {
			query = s
		}
	}
	return a.store.Search(ctx, query)
}

type renameArgs struct {
	ShipID string `arg:"shipId"`
	Name   string `arg:"name"`
}

// updateShipName renames a ship. The ship defaults to the route's.
func (a *App) updateShipName(ctx context.Context, args reply.Args) (any, error) {
	var in renameArgs
	if err := args.Bind(&in); err != nil {
		return nil, err
	}
	if in.ShipID == "" {
		in.ShipID = scope.OrDefault(ctx).RouteParam
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}

	ship, err := a.store.Get(ctx, in.ShipID)
	if err != nil {
		return nil, err
	}
	ship.Name = in.Name
	if err := a.store.Put(ctx, ship); err != nil {
		return nil, err
	}
	a.logger.Info("ship renamed", "ship_id", ship.ID, "name", ship.Name)
	return ship, nil
}

// PhotoReceipt describes an accepted photo.
type PhotoReceipt struct {
	ShipID      string `json:"shipId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
}

// attachPhoto reads the "photo" file argument and returns its digest.
func (a *App) attachPhoto(ctx context.Context, args reply.Args) (any, error) {
	f, ok := args.File("photo")
	if !ok {
		return nil, errors.New("app: photo argument missing")
	}
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("app: read photo: %w", err)
	}
	receipt := PhotoReceipt{
		ShipID:      scope.OrDefault(ctx).RouteParam,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        n,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
	}
	a.logger.Info("photo attached", "ship_id", receipt.ShipID, "size", n)
	return receipt, nil
}

// reindex rebuilds the seed data. Operators only.
func (a *App) reindex(ctx context.Context, _ reply.Args) (any, error) {
	for _, ship := range ships.Seed() {
		if err := a.store.Put(ctx, ship); err != nil {
			return nil, err
		}
	}
	return "reindexed", nil
}
