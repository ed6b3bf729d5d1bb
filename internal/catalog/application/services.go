package application

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// StoreRepository は店舗の永続化ポート。
// Insert/Update は slug の一意制約違反を *domain.ConflictError で返すこと。
type StoreRepository interface {
	Insert(ctx context.Context, store *domain.Store) error
	Update(ctx context.Context, store *domain.Store) error
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Store, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Store, error)
	CountSlugs(ctx context.Context, base, excludeID string) (int64, error)
	FindPage(ctx context.Context, skip, limit int) ([]domain.Store, error)
	Count(ctx context.Context) (int64, error)
	FindByTag(ctx context.Context, tag string) ([]domain.Store, error)
	TagCounts(ctx context.Context) ([]domain.TagCount, error)
	SearchText(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
	FindNear(ctx context.Context, point orb.Point, maxDistanceMeters float64, limit int) ([]domain.Store, error)
}

// ReviewRepository reads externally owned reviews.
type ReviewRepository interface {
	FindByStore(ctx context.Context, storeID string) ([]domain.Review, error)
	FindByStores(ctx context.Context, storeIDs []string) (map[string][]domain.Review, error)
	TopRated(ctx context.Context, minReviews, limit int) ([]domain.RatedStore, error)
}

// FavoriteRepository keeps the per-user favorite store id set.
// Toggle must flip membership in a single atomic write.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, storeID string) ([]string, error)
	List(ctx context.Context, userID string) ([]string, error)
}

// RankingCache stores derived read models. A miss returns ok=false with a nil error.
// Set* stamps entries with the generation read before the value was computed;
// entries stamped with an older generation than the current one are misses.
type RankingCache interface {
	Generation(ctx context.Context) (int64, error)
	TopRated(ctx context.Context, limit int) ([]domain.RatedStore, bool, error)
	SetTopRated(ctx context.Context, generation int64, limit int, stores []domain.RatedStore) error
	TagCounts(ctx context.Context) ([]domain.TagCount, bool, error)
	SetTagCounts(ctx context.Context, generation int64, tags []domain.TagCount) error
	Invalidate(ctx context.Context) error
}

// Metrics receives per-operation observations.
type Metrics interface {
	ObserveOperation(operation string, elapsed time.Duration, err error)
	IncSlugConflict()
}

// CreateStoreCommand contains inputs for creating a store.
type CreateStoreCommand struct {
	Name        string
	Description string
	Tags        []string
	Location    domain.Location
	Photo       string
	AuthorID    string
}

// UpdateStoreCommand is a partial update. Nil fields are left untouched.
type UpdateStoreCommand struct {
	ActorID     string
	Name        *string
	Description *string
	Tags        *[]string
	Location    *domain.Location
	Photo       *string
}

// CatalogService は店舗カタログのユースケース群。
type CatalogService interface {
	Create(ctx context.Context, cmd CreateStoreCommand) (*domain.Store, error)
	Update(ctx context.Context, id string, cmd UpdateStoreCommand) (*domain.Store, error)
	GetBySlug(ctx context.Context, slug string, opts ...ReadOption) (*domain.Store, error)
	GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Store, error)
	Editable(ctx context.Context, actorID, id string) (*domain.Store, error)
	ListPage(ctx context.Context, page int, opts ...ReadOption) (*domain.Page, error)
	ListByTag(ctx context.Context, tag string, opts ...ReadOption) ([]domain.Store, error)
	TagCounts(ctx context.Context) ([]domain.TagCount, error)
	SearchText(ctx context.Context, query string) ([]domain.SearchHit, error)
	FindNear(ctx context.Context, lng, lat float64) ([]domain.NearbyStore, error)
	TopRated(ctx context.Context, limit int) ([]domain.RatedStore, error)
	ToggleFavorite(ctx context.Context, userID, storeID string) ([]string, error)
	Favorites(ctx context.Context, userID string, opts ...ReadOption) ([]domain.Store, error)
}

// ReadOption tunes store reads.
type ReadOption func(*readOptions)

type readOptions struct {
	includeReviews bool
}

// WithReviews sets whether reviews are joined onto returned stores. Reads include them by default.
func WithReviews(include bool) ReadOption {
	return func(o *readOptions) { o.includeReviews = include }
}

// WithoutReviews skips the review join.
func WithoutReviews() ReadOption {
	return WithReviews(false)
}

func collectReadOptions(opts []ReadOption) readOptions {
	o := readOptions{includeReviews: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
