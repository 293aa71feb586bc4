package util

import (
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, pkg.DEFAULT_CORRIDOR_HALF_WIDTH, cfg.Matcher.CorridorHalfWidth)
	assert.Equal(t, pkg.DEFAULT_WEIGHT_DIRECTION, cfg.Matcher.Weights.Direction)
	assert.Equal(t, pkg.DEFAULT_MAX_SUBSEGMENT_M, cfg.Segment.MaxLength)
	assert.Equal(t, pkg.DEFAULT_TILE_CELL_LEVEL, cfg.Tiles.CellLevel)
	assert.Equal(t, 2*time.Second, cfg.Watcher.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
	assert.Equal(t, "RecWay_", cfg.Watcher.Prefix)

	assert.False(t, viper.IsSet("matcher.corridor_half_width"), "global viper left untouched")
}

func TestDefaultConfigConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	cfgs := make([]*Config, 8)
	for i := range cfgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfgs[i], _ = DefaultConfig()
		}(i)
	}
	wg.Wait()
	for _, cfg := range cfgs {
		require.NotNil(t, cfg)
		assert.Equal(t, cfgs[0], cfg)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	cfg.Matcher.CorridorHalfWidth = 0
	assert.ErrorIs(t, cfg.Validate(), ErrBadParamInput)
}
