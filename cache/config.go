package cache

import (
	"time"

	"github.com/goliatone/go-record-graph/internal/cacheinfra"
)

// Config exposes the record cache settings for consumers of the cache
// package. Zero fields fall back to the defaults on New.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with the operational defaults,
// including the 30 second TTL.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.withDefaults().toInternal().Validate()
}

// New constructs the default RecordCache implementation from cfg.
func New(cfg Config) (RecordCache, error) {
	backend, err := cacheinfra.NewRecordStore(cfg.withDefaults().toInternal())
	if err != nil {
		return nil, err
	}
	return &recordCache{backend: backend}, nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Capacity == 0 {
		c.Capacity = def.Capacity
	}
	if c.NumShards == 0 {
		c.NumShards = def.NumShards
	}
	if c.TTL == 0 {
		c.TTL = def.TTL
	}
	if c.EvictionPercentage == 0 {
		c.EvictionPercentage = def.EvictionPercentage
	}
	return c
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
