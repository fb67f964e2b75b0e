package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-record-graph/record"
)

// Config holds the settings for the sturdyc-backed record store.
type Config struct {
	// Capacity defines the maximum number of records the cache can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for cached records. After this duration a
	// record is considered expired and the next read goes to the store.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the settings the engine assumes when callers do not
// tune the cache: a short 30 second TTL, since cached records exist to
// absorb the burst of repeated reads a single graph operation produces, not
// to be a long-lived data tier.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                30 * time.Second,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.By(positiveDuration)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.By(nonNegativeDuration)),
	)
}

func positiveDuration(v any) error {
	if d, ok := v.(time.Duration); !ok || d <= 0 {
		return validation.NewError("validation_duration", "must be a positive duration")
	}
	return nil
}

func nonNegativeDuration(v any) error {
	if d, ok := v.(time.Duration); !ok || d < 0 {
		return validation.NewError("validation_duration", "must not be negative")
	}
	return nil
}

func (c Config) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	// Negative caching and background refreshes are deliberately left off:
	// the save pipeline uses a live miss as its existence probe, and a
	// record refreshed outside an operation would carry no operation
	// context.
	return options
}

// RecordStore is a sturdyc client fixed to record values. Keys are record
// identities.
type RecordStore struct {
	client *sturdyc.Client[*record.Record]
}

// NewRecordStore validates cfg and builds the backing sturdyc client.
func NewRecordStore(cfg Config) (*RecordStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[*record.Record](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)
	return &RecordStore{client: client}, nil
}

// Get returns the cached record for id, if present and unexpired.
func (s *RecordStore) Get(id record.Identity) (*record.Record, bool) {
	return s.client.Get(string(id))
}

// GetOrFetch returns the cached record for id, or runs fetch to produce it.
// Concurrent calls for the same id share one fetch.
func (s *RecordStore) GetOrFetch(ctx context.Context, id record.Identity, fetch func(ctx context.Context) (*record.Record, error)) (*record.Record, error) {
	return s.client.GetOrFetch(ctx, string(id), fetch)
}

// Set stores rec under id, overwriting any previous entry.
func (s *RecordStore) Set(id record.Identity, rec *record.Record) {
	s.client.Set(string(id), rec)
}

// Delete removes the entry for id, if any.
func (s *RecordStore) Delete(id record.Identity) {
	s.client.Delete(string(id))
}

// Keys returns the identities currently cached.
func (s *RecordStore) Keys() []record.Identity {
	raw := s.client.ScanKeys()
	out := make([]record.Identity, len(raw))
	for i, k := range raw {
		out[i] = record.Identity(k)
	}
	return out
}

// Len returns the number of cached entries.
func (s *RecordStore) Len() int {
	return len(s.client.ScanKeys())
}
