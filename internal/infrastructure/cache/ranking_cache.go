// Package cache holds Redis-backed read models derived from the catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

const (
	topRatedKeyPrefix = "catalog:top-rated:"
	tagCountsKey      = "catalog:tag-counts"
	// generationKey is bumped on every write; cached entries from older generations are ignored.
	generationKey = "catalog:generation"
)

// RankingCache caches top-rated listings and tag counts with a TTL.
// Entries are versioned by a generation counter so Invalidate is a single INCR.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRankingCache creates a cache on client. A non-positive ttl defaults to one minute.
func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RankingCache{client: client, ttl: ttl}
}

type entry[T any] struct {
	Generation int64 `json:"generation"`
	Value      T     `json:"value"`
}

type ratedStoreEntry struct {
	Store         storeEntry `json:"store"`
	AverageRating float64    `json:"averageRating"`
	ReviewCount   int        `json:"reviewCount"`
}

type storeEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address"`
	Photo       string     `json:"photo,omitempty"`
	Author      string     `json:"author"`
	Created     time.Time  `json:"created"`
}

type tagCountEntry struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func (c *RankingCache) TopRated(ctx context.Context, limit int) ([]domain.RatedStore, bool, error) {
	var cached entry[[]ratedStoreEntry]
	ok, err := c.load(ctx, topRatedKey(limit), &cached)
	if err != nil || !ok {
		return nil, false, err
	}

	ranked := make([]domain.RatedStore, 0, len(cached.Value))
	for _, e := range cached.Value {
		ranked = append(ranked, domain.RatedStore{
			Store:         e.Store.toDomain(),
			AverageRating: e.AverageRating,
			ReviewCount:   e.ReviewCount,
		})
	}
	return ranked, true, nil
}

func (c *RankingCache) SetTopRated(ctx context.Context, generation int64, limit int, stores []domain.RatedStore) error {
	entries := make([]ratedStoreEntry, 0, len(stores))
	for _, s := range stores {
		entries = append(entries, ratedStoreEntry{
			Store:         newStoreEntry(s.Store),
			AverageRating: s.AverageRating,
			ReviewCount:   s.ReviewCount,
		})
	}
	return c.save(ctx, topRatedKey(limit), generation, entries)
}

func (c *RankingCache) TagCounts(ctx context.Context) ([]domain.TagCount, bool, error) {
	var cached entry[[]tagCountEntry]
	ok, err := c.load(ctx, tagCountsKey, &cached)
	if err != nil || !ok {
		return nil, false, err
	}

	tags := make([]domain.TagCount, 0, len(cached.Value))
	for _, e := range cached.Value {
		tags = append(tags, domain.TagCount{Tag: e.Tag, Count: e.Count})
	}
	return tags, true, nil
}

func (c *RankingCache) SetTagCounts(ctx context.Context, generation int64, tags []domain.TagCount) error {
	entries := make([]tagCountEntry, 0, len(tags))
	for _, t := range tags {
		entries = append(entries, tagCountEntry{Tag: t.Tag, Count: t.Count})
	}
	return c.save(ctx, tagCountsKey, generation, entries)
}

// Invalidate makes every cached entry stale.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

// Generation returns the current cache generation. Callers read it before
// computing a value and hand it back to Set*.
func (c *RankingCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RankingCache) load(ctx context.Context, key string, dst interface{ generation() int64 }) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Corrupt entries behave like a miss and get overwritten.
		return false, nil
	}

	gen, err := c.Generation(ctx)
	if err != nil {
		return false, fmt.Errorf("get generation: %w", err)
	}
	return dst.generation() == gen, nil
}

// save writes value stamped with generation. A value computed before a
// concurrent Invalidate carries the old generation and reads back as a miss.
func (c *RankingCache) save(ctx context.Context, key string, generation int64, value any) error {
	raw, err := json.Marshal(entry[any]{Generation: generation, Value: value})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (e *entry[T]) generation() int64 { return e.Generation }

func topRatedKey(limit int) string {
	return topRatedKeyPrefix + strconv.Itoa(limit)
}

func newStoreEntry(s domain.Store) storeEntry {
	return storeEntry{
		ID:          s.ID,
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		Tags:        s.Tags,
		Coordinates: [2]float64{s.Location.Coordinates.Lon(), s.Location.Coordinates.Lat()},
		Address:     s.Location.Address,
		Photo:       s.Photo,
		Author:      s.AuthorID,
		Created:     s.Created,
	}
}

func (e storeEntry) toDomain() domain.Store {
	return domain.Store{
		ID:          e.ID,
		Name:        e.Name,
		Slug:        e.Slug,
		Description: e.Description,
		Tags:        e.Tags,
		Location: domain.Location{
			Type:        domain.PointType,
			Coordinates: e.Coordinates,
			Address:     e.Address,
		},
		Photo:    e.Photo,
		AuthorID: e.Author,
		Created:  e.Created,
	}
}
