// Package ships is the data-access layer behind the demo app: ship details
// by ID and a name search.
package ships

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("ships: not found")

// Weapon is one armament of a ship.
type Weapon struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Damage int    `json:"damage"`
}

// Ship is a full ship record.
type Ship struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Image      string   `json:"image"`
	TopSpeed   int      `json:"topSpeed"`
	Hyperdrive bool     `json:"hyperdrive"`
	Weapons    []Weapon `json:"weapons,omitempty"`
}

// Summary is a search result.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Summary returns the search view of s.
func (s *Ship) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, Image: s.Image}
}

// Store reads and writes ships.
type Store interface {
	// Get returns the ship with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Ship, error)

	// Search returns ships whose name contains query, ignoring case,
	// ordered by name. An empty query matches every ship.
	Search(ctx context.Context, query string) ([]Summary, error)

	// Put creates or replaces a ship.
	Put(ctx context.Context, ship *Ship) error
}

func matches(name, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].ID < s[j].ID
	})
}

// Seed is the demo fleet.
func Seed() []*Ship {
	return []*Ship{
		{
			ID: "6c86fca8b9086", Name: "Galaxy Voyager", Image: "/img/ships/galaxy-voyager.webp",
			TopSpeed: 9800, Hyperdrive: true,
			Weapons: []Weapon{{Name: "Ion Cannon", Type: "energy", Damage: 40}, {Name: "Plasma Torpedo", Type: "explosive", Damage: 85}},
		},
		{
			ID: "a1b2c3d4e5f60", Name: "Nebula Nomad", Image: "/img/ships/nebula-nomad.webp",
			TopSpeed: 7200, Hyperdrive: false,
			Weapons: []Weapon{{Name: "Railgun", Type: "kinetic", Damage: 55}},
		},
		{
			ID: "0f9e8d7c6b5a4", Name: "Star Dancer", Image: "/img/ships/star-dancer.webp",
			TopSpeed: 11200, Hyperdrive: true,
		},
		{
			ID: "5e4d3c2b1a098", Name: "Stellar Sparrow", Image: "/img/ships/stellar-sparrow.webp",
			TopSpeed: 6400, Hyperdrive: true,
			Weapons: []Weapon{{Name: "Pulse Laser", Type: "energy", Damage: 25}},
		},
	}
}
