package application

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// memoryStores is an in-memory StoreRepository that enforces slug uniqueness like the unique index does.
type memoryStores struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]domain.Store

	// beforeWrite runs before each Insert/Update commit, outside the lock.
	beforeWrite func(store *domain.Store)
	inserts     int
	updates     int
	searches    int
}

func newMemoryStores() *memoryStores {
	return &memoryStores{byID: make(map[string]domain.Store)}
}

func (m *memoryStores) Insert(_ context.Context, store *domain.Store) error {
	if m.beforeWrite != nil {
		m.beforeWrite(store)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++

	if m.slugTakenLocked(store.Slug, "") {
		return &domain.ConflictError{Slug: store.Slug}
	}
	m.nextID++
	id := fmt.Sprintf("s%04d", m.nextID)
	saved := *store
	saved.ID = id
	saved.Reviews = nil
	m.byID[id] = saved
	store.ID = id
	return nil
}

func (m *memoryStores) Update(_ context.Context, store *domain.Store) error {
	if m.beforeWrite != nil {
		m.beforeWrite(store)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++

	if _, ok := m.byID[store.ID]; !ok {
		return &domain.NotFoundError{Entity: "store", Key: store.ID}
	}
	if m.slugTakenLocked(store.Slug, store.ID) {
		return &domain.ConflictError{Slug: store.Slug}
	}
	saved := *store
	saved.Reviews = nil
	m.byID[store.ID] = saved
	return nil
}

// put stores a record directly, bypassing slug checks.
func (m *memoryStores) put(store domain.Store) domain.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if store.ID == "" {
		m.nextID++
		store.ID = fmt.Sprintf("s%04d", m.nextID)
	}
	m.byID[store.ID] = store
	return store
}

func (m *memoryStores) slugTakenLocked(slug, excludeID string) bool {
	for id, s := range m.byID {
		if id != excludeID && strings.EqualFold(s.Slug, slug) {
			return true
		}
	}
	return false
}

func (m *memoryStores) FindByID(_ context.Context, id string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "store", Key: id}
	}
	return &s, nil
}

func (m *memoryStores) FindBySlug(_ context.Context, slug string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Slug == slug {
			found := s
			return &found, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "store", Key: slug}
}

func (m *memoryStores) FindByIDs(_ context.Context, ids []string) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Store, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *memoryStores) CountSlugs(_ context.Context, base, excludeID string) (int64, error) {
	re := regexp.MustCompile("(?i)" + domain.SlugPattern(base))
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if id != excludeID && re.MatchString(s.Slug) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStores) sortedLocked() []domain.Store {
	all := make([]domain.Store, 0, len(m.byID))
	for _, s := range m.byID {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Created.Equal(all[j].Created) {
			return all[i].Created.After(all[j].Created)
		}
		return all[i].ID > all[j].ID
	})
	return all
}

func (m *memoryStores) FindPage(_ context.Context, skip, limit int) ([]domain.Store, error) {
	if skip < 0 || limit <= 0 {
		// MongoDB も負の skip を拒否する
		return nil, fmt.Errorf("invalid page window skip=%d limit=%d", skip, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedLocked()
	if skip >= len(all) {
		return []domain.Store{}, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.Store(nil), all[skip:end]...), nil
}

func (m *memoryStores) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *memoryStores) FindByTag(_ context.Context, tag string) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Store, 0)
	for _, s := range m.sortedLocked() {
		if tag == "" && len(s.Tags) > 0 {
			result = append(result, s)
			continue
		}
		for _, t := range s.Tags {
			if t == tag {
				result = append(result, s)
				break
			}
		}
	}
	return result, nil
}

func (m *memoryStores) TagCounts(context.Context) ([]domain.TagCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, s := range m.byID {
		for _, t := range s.Tags {
			counts[t]++
		}
	}
	result := make([]domain.TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, domain.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result, nil
}

func (m *memoryStores) SearchText(_ context.Context, query string, limit int) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	q := strings.ToLower(query)
	hits := make([]domain.SearchHit, 0)
	for _, s := range m.sortedLocked() {
		score := float64(strings.Count(strings.ToLower(s.Name+" "+s.Description), q))
		if score > 0 {
			hits = append(hits, domain.SearchHit{Store: s, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// FindNear ignores maxDistance on purpose so the catalog's own distance check is exercised.
func (m *memoryStores) FindNear(_ context.Context, point orb.Point, _ float64, limit int) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedLocked()
	sort.SliceStable(all, func(i, j int) bool {
		return geo.Distance(point, all[i].Location.Coordinates) < geo.Distance(point, all[j].Location.Coordinates)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type memoryReviews struct {
	mu        sync.Mutex
	reviews   []domain.Review
	topCalls  int
	lastLimit int
	// onTopRated runs before the ranking is computed, outside the lock.
	onTopRated func()
}

func (m *memoryReviews) add(storeID string, ratings ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range ratings {
		m.reviews = append(m.reviews, domain.Review{
			ID:      fmt.Sprintf("r%03d", len(m.reviews)+1),
			StoreID: storeID,
			Rating:  r,
			Created: time.Now(),
		})
	}
}

func (m *memoryReviews) FindByStore(_ context.Context, storeID string) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Review
	for _, r := range m.reviews {
		if r.StoreID == storeID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *memoryReviews) FindByStores(_ context.Context, storeIDs []string) (map[string][]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = struct{}{}
	}
	result := make(map[string][]domain.Review)
	for _, r := range m.reviews {
		if _, ok := wanted[r.StoreID]; ok {
			result[r.StoreID] = append(result[r.StoreID], r)
		}
	}
	return result, nil
}

func (m *memoryReviews) TopRated(_ context.Context, minReviews, limit int) ([]domain.RatedStore, error) {
	if m.onTopRated != nil {
		m.onTopRated()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topCalls++
	m.lastLimit = limit
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range m.reviews {
		sums[r.StoreID] += r.Rating
		counts[r.StoreID]++
	}
	result := make([]domain.RatedStore, 0)
	for id, n := range counts {
		if n < minReviews {
			continue
		}
		result = append(result, domain.RatedStore{
			Store:         domain.Store{ID: id},
			AverageRating: sums[id] / float64(n),
			ReviewCount:   n,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AverageRating != result[j].AverageRating {
			return result[i].AverageRating > result[j].AverageRating
		}
		return result[i].Store.ID < result[j].Store.ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memoryFavorites struct {
	mu   sync.Mutex
	sets map[string][]string
}

func newMemoryFavorites() *memoryFavorites {
	return &memoryFavorites{sets: make(map[string][]string)}
}

func (m *memoryFavorites) Toggle(_ context.Context, userID, storeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.sets[userID]
	next := make([]string, 0, len(current)+1)
	found := false
	for _, id := range current {
		if id == storeID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, storeID)
	}
	m.sets[userID] = next
	return append([]string(nil), next...), nil
}

func (m *memoryFavorites) List(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sets[userID]...), nil
}

type memoryCache struct {
	generation  int64
	top         map[int][]domain.RatedStore
	topGen      map[int]int64
	tags        []domain.TagCount
	tagsGen     int64
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{top: make(map[int][]domain.RatedStore), topGen: make(map[int]int64)}
}

func (c *memoryCache) Generation(context.Context) (int64, error) {
	return c.generation, nil
}

func (c *memoryCache) TopRated(_ context.Context, limit int) ([]domain.RatedStore, bool, error) {
	v, ok := c.top[limit]
	return v, ok && c.topGen[limit] == c.generation, nil
}

func (c *memoryCache) SetTopRated(_ context.Context, generation int64, limit int, stores []domain.RatedStore) error {
	c.top[limit] = stores
	c.topGen[limit] = generation
	return nil
}

func (c *memoryCache) TagCounts(context.Context) ([]domain.TagCount, bool, error) {
	return c.tags, c.tags != nil && c.tagsGen == c.generation, nil
}

func (c *memoryCache) SetTagCounts(_ context.Context, generation int64, tags []domain.TagCount) error {
	c.tags = tags
	c.tagsGen = generation
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.invalidated++
	c.generation++
	return nil
}

type countingMetrics struct {
	mu         sync.Mutex
	operations map[string]int
	failures   map[string]int
	conflicts  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{operations: make(map[string]int), failures: make(map[string]int)}
}

func (m *countingMetrics) ObserveOperation(operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[operation]++
	if err != nil {
		m.failures[operation]++
	}
}

func (m *countingMetrics) IncSlugConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}
