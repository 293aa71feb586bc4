package tile

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/golang/geo/s2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoGraphData  = errors.New("no graph data available")
	ErrCorruptTile  = errors.New("corrupt graph tile")
	ErrTileMismatch = errors.New("graph tile does not contain the point")
)

// IsGraphUnavailable reports whether err means the point has no usable graph tile.
func IsGraphUnavailable(err error) bool {
	return errors.Is(err, ErrNoGraphData) || errors.Is(err, ErrCorruptTile) || errors.Is(err, ErrTileMismatch)
}

// Source provides tiles by cell id.
type Source interface {
	Load(ctx context.Context, cell s2.CellID) (*Tile, error)
	Level() int
}

// Store loads tiles from a directory and keeps recently used ones in memory.
// Loaded tiles are immutable, so one copy is shared by every concurrent run.
type Store struct {
	dir   string
	level int
	cache *lru.Cache[s2.CellID, *Tile]
	group singleflight.Group
	log   *zap.Logger
}

func NewStore(dir string, level, cacheSize int, log *zap.Logger) (*Store, error) {
	cache, err := lru.New[s2.CellID, *Tile](cacheSize)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "tile cache size %d", cacheSize)
	}
	return &Store{
		dir:   dir,
		level: level,
		cache: cache,
		log:   log,
	}, nil
}

func (s *Store) Level() int {
	return s.level
}

func (s *Store) Dir() string {
	return s.dir
}

// Load returns the tile of cell, reading it from disk at most once at a time per cell.
func (s *Store) Load(ctx context.Context, cell s2.CellID) (*Tile, error) {
	if t, ok := s.cache.Get(cell); ok {
		return t, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(cell.ToToken(), func() (interface{}, error) {
		if t, ok := s.cache.Get(cell); ok {
			return t, nil
		}
		path := filepath.Join(s.dir, TileFileName(cell))
		graph, err := datastructure.ReadTile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, util.WrapErrorf(err, ErrNoGraphData, "tile %s not found", cell.ToToken())
		} else if err != nil {
			s.log.Warn("failed to read graph tile", zap.String("path", path), zap.Error(err))
			return nil, util.WrapErrorf(err, ErrCorruptTile, "tile %s", cell.ToToken())
		}

		t := NewTile(cell, graph)
		s.cache.Add(cell, t)
		s.log.Debug("graph tile loaded", zap.String("cell", cell.ToToken()),
			zap.Int("edges", graph.NumberOfEdges()))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tile), nil
}
