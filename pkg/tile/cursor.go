package tile

import (
	"context"
	"errors"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/util"
)

// Cursor holds the single resident tile of one trace run. Not safe for concurrent use;
// every run owns its cursor, so a swap in one run never affects another.
type Cursor struct {
	source  Source
	current *Tile
	swaps   int
	// cells without a tile file, remembered for the rest of the run
	missing map[s2.CellID]error
}

func NewCursor(source Source) *Cursor {
	return &Cursor{source: source, missing: make(map[s2.CellID]error)}
}

func (c *Cursor) Current() *Tile {
	return c.current
}

func (c *Cursor) Swaps() int {
	return c.swaps
}

// Locate returns the tile covering (lat, lon) and whether the resident tile changed.
// A loaded tile that fails the containment check is rejected; the resident tile is kept
// when it still contains the point. At most one load is attempted per call.
func (c *Cursor) Locate(ctx context.Context, lat, lon float64) (*Tile, bool, error) {
	cell := CellID(lat, lon, c.source.Level())
	if c.current != nil && c.current.GetCell() == cell {
		return c.current, false, nil
	}

	if err, ok := c.missing[cell]; ok {
		return nil, false, err
	}

	t, err := c.source.Load(ctx, cell)
	if err != nil {
		if errors.Is(err, ErrNoGraphData) {
			c.missing[cell] = err
		}
		return nil, false, err
	}

	if !t.Contains(lat, lon) {
		if c.current != nil && c.current.Contains(lat, lon) {
			return c.current, false, nil
		}
		return nil, false, util.WrapErrorf(nil, ErrTileMismatch, "tile %s does not contain (%f, %f)",
			cell.ToToken(), lat, lon)
	}

	swapped := c.current != nil
	c.current = t
	if swapped {
		c.swaps++
	}
	return t, true, nil
}
