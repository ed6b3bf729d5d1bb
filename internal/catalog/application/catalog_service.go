package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/sync/errgroup"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// Policy defaults.
const (
	DefaultPageSize          = 4
	DefaultSlugMaxAttempts   = 5
	DefaultSearchLimit       = 5
	DefaultNearMaxDistance   = 10000.0
	DefaultNearLimit         = 10
	DefaultTopRatedLimit     = 10
	DefaultMinReviewsForRank = 2
)

// Options holds catalog policy values. Zero values fall back to the defaults above.
type Options struct {
	PageSize          int
	SlugMaxAttempts   int
	SearchLimit       int
	NearMaxDistance   float64
	NearLimit         int
	TopRatedLimit     int
	MinReviewsForRank int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.SlugMaxAttempts <= 0 {
		o.SlugMaxAttempts = DefaultSlugMaxAttempts
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = DefaultSearchLimit
	}
	if o.NearMaxDistance <= 0 {
		o.NearMaxDistance = DefaultNearMaxDistance
	}
	if o.NearLimit <= 0 {
		o.NearLimit = DefaultNearLimit
	}
	if o.TopRatedLimit <= 0 {
		o.TopRatedLimit = DefaultTopRatedLimit
	}
	if o.MinReviewsForRank <= 0 {
		o.MinReviewsForRank = DefaultMinReviewsForRank
	}
	return o
}

// Dependencies groups the ports the catalog is built from.
// Cache, Metrics and Logger are optional.
type Dependencies struct {
	Stores    StoreRepository
	Reviews   ReviewRepository
	Favorites FavoriteRepository
	Cache     RankingCache
	Metrics   Metrics
	Logger    *slog.Logger
}

type catalogService struct {
	stores    StoreRepository
	reviews   ReviewRepository
	favorites FavoriteRepository
	cache     RankingCache
	metrics   Metrics
	logger    *slog.Logger
	slugs     *SlugResolver
	opts      Options
}

// NewCatalogService wires the catalog facade.
func NewCatalogService(deps Dependencies, opts Options) CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &catalogService{
		stores:    deps.Stores,
		reviews:   deps.Reviews,
		favorites: deps.Favorites,
		cache:     deps.Cache,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "catalog")),
		slugs:     NewSlugResolver(deps.Stores),
		opts:      opts.withDefaults(),
	}
}

func (s *catalogService) Create(ctx context.Context, cmd CreateStoreCommand) (store *domain.Store, err error) {
	defer s.observe("create", time.Now(), &err)

	loc := cmd.Location
	loc.Type = domain.PointType
	store = &domain.Store{
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		Tags:        domain.NormalizeTags(cmd.Tags),
		Location:    loc,
		Photo:       strings.TrimSpace(cmd.Photo),
		AuthorID:    strings.TrimSpace(cmd.AuthorID),
		Created:     time.Now().UTC(),
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}

	err = s.commitWithSlug(ctx, store, func(ctx context.Context) error {
		return s.stores.Insert(ctx, store)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRankings(ctx)
	s.logger.InfoContext(ctx, "store created",
		slog.String("id", store.ID),
		slog.String("slug", store.Slug),
		slog.String("author", store.AuthorID))
	return store, nil
}

func (s *catalogService) Update(ctx context.Context, id string, cmd UpdateStoreCommand) (store *domain.Store, err error) {
	defer s.observe("update", time.Now(), &err)

	store, err = s.Editable(ctx, cmd.ActorID, id)
	if err != nil {
		return nil, err
	}

	renamed := false
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "name is required")
		}
		if name != store.Name {
			store.Name = name
			renamed = true
		}
	}
	if cmd.Description != nil {
		store.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Tags != nil {
		store.Tags = domain.NormalizeTags(*cmd.Tags)
	}
	if cmd.Location != nil {
		store.Location = *cmd.Location
		store.Location.Address = strings.TrimSpace(store.Location.Address)
	}
	if cmd.Photo != nil {
		store.Photo = strings.TrimSpace(*cmd.Photo)
	}
	store.Location.Type = domain.PointType
	store.Reviews = nil

	if err := store.Validate(); err != nil {
		return nil, err
	}

	persist := func(ctx context.Context) error {
		return s.stores.Update(ctx, store)
	}
	if renamed && !slugFitsName(store.Slug, store.Name) {
		err = s.commitWithSlug(ctx, store, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateRankings(ctx)
	s.logger.InfoContext(ctx, "store updated",
		slog.String("id", store.ID),
		slog.String("slug", store.Slug),
		slog.Bool("renamed", renamed))
	return store, nil
}

// commitWithSlug resolves a slug for store.Name and runs write, retrying with the
// next candidate whenever write reports a slug conflict.
func (s *catalogService) commitWithSlug(ctx context.Context, store *domain.Store, write func(context.Context) error) error {
	rejected := make(map[string]struct{})
	for attempt := 1; attempt <= s.opts.SlugMaxAttempts; attempt++ {
		slug, err := s.slugs.Next(ctx, store.Name, store.ID, rejected)
		if err != nil {
			return err
		}
		store.Slug = slug

		err = write(ctx)
		if err == nil {
			return nil
		}
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			return err
		}

		rejected[slug] = struct{}{}
		s.metrics.IncSlugConflict()
		s.logger.WarnContext(ctx, "slug conflict, retrying",
			slog.String("slug", slug),
			slog.Int("attempt", attempt))
	}
	return &domain.ConflictError{Slug: store.Slug, Attempts: s.opts.SlugMaxAttempts}
}

func (s *catalogService) GetBySlug(ctx context.Context, slug string, opts ...ReadOption) (store *domain.Store, err error) {
	defer s.observe("get_by_slug", time.Now(), &err)

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.NewValidationError("slug", "slug is required")
	}
	store, err = s.stores.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.attachReviews(ctx, store, collectReadOptions(opts)); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *catalogService) GetByID(ctx context.Context, id string, opts ...ReadOption) (store *domain.Store, err error) {
	defer s.observe("get_by_id", time.Now(), &err)

	store, err = s.stores.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if err := s.attachReviews(ctx, store, collectReadOptions(opts)); err != nil {
		return nil, err
	}
	return store, nil
}

// Editable loads a store for modification, failing with OwnershipError when actorID is not its author.
func (s *catalogService) Editable(ctx context.Context, actorID, id string) (*domain.Store, error) {
	store, err := s.stores.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !store.OwnedBy(strings.TrimSpace(actorID)) {
		return nil, &domain.OwnershipError{StoreID: store.ID, UserID: actorID}
	}
	return store, nil
}

func (s *catalogService) ListPage(ctx context.Context, page int, opts ...ReadOption) (result *domain.Page, err error) {
	defer s.observe("list_page", time.Now(), &err)

	if page < 1 {
		page = 1
	}
	size := s.opts.PageSize

	var (
		stores []domain.Store
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	// skip が int に収まらないページは必ず範囲外なので、ストレージに問い合わせない。
	if page-1 <= math.MaxInt/size {
		g.Go(func() error {
			var err error
			stores, err = s.stores.FindPage(gctx, (page-1)*size, size)
			return err
		})
	} else {
		stores = []domain.Store{}
	}
	g.Go(func() error {
		var err error
		total, err = s.stores.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.attachReviewsToAll(ctx, stores, collectReadOptions(opts)); err != nil {
		return nil, err
	}
	return &domain.Page{
		Stores:     stores,
		Number:     page,
		Size:       size,
		Total:      total,
		TotalPages: domain.TotalPages(total, size),
	}, nil
}

// ListByTag returns stores carrying tag. An empty tag lists every store that has at least one tag.
func (s *catalogService) ListByTag(ctx context.Context, tag string, opts ...ReadOption) (stores []domain.Store, err error) {
	defer s.observe("list_by_tag", time.Now(), &err)

	stores, err = s.stores.FindByTag(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	if err := s.attachReviewsToAll(ctx, stores, collectReadOptions(opts)); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *catalogService) TagCounts(ctx context.Context) (tags []domain.TagCount, err error) {
	defer s.observe("tag_counts", time.Now(), &err)

	generation, cacheUsable := s.cacheGeneration(ctx)
	if cacheUsable {
		cached, ok, err := s.cache.TagCounts(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "tag count cache read failed", slog.Any("error", err))
		} else if ok {
			return cached, nil
		}
	}

	tags, err = s.stores.TagCounts(ctx)
	if err != nil {
		return nil, err
	}

	if cacheUsable {
		if err := s.cache.SetTagCounts(ctx, generation, tags); err != nil {
			s.logger.WarnContext(ctx, "tag count cache write failed", slog.Any("error", err))
		}
	}
	return tags, nil
}

func (s *catalogService) SearchText(ctx context.Context, query string) (hits []domain.SearchHit, err error) {
	defer s.observe("search_text", time.Now(), &err)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchHit{}, nil
	}
	hits, err = s.stores.SearchText(ctx, query, s.opts.SearchLimit)
	if err != nil {
		return nil, err
	}
	if len(hits) > s.opts.SearchLimit {
		hits = hits[:s.opts.SearchLimit]
	}
	return hits, nil
}

// FindNear returns stores within the configured radius, nearest first.
// Storage results are re-checked with a great-circle distance so nothing beyond the radius leaks through.
func (s *catalogService) FindNear(ctx context.Context, lng, lat float64) (nearby []domain.NearbyStore, err error) {
	defer s.observe("find_near", time.Now(), &err)

	if err := domain.ValidateCoordinates(lng, lat); err != nil {
		return nil, err
	}
	origin := orb.Point{lng, lat}

	stores, err := s.stores.FindNear(ctx, origin, s.opts.NearMaxDistance, s.opts.NearLimit)
	if err != nil {
		return nil, err
	}

	nearby = make([]domain.NearbyStore, 0, len(stores))
	for _, store := range stores {
		distance := geo.Distance(origin, store.Location.Coordinates)
		if distance > s.opts.NearMaxDistance {
			continue
		}
		nearby = append(nearby, domain.NearbyStore{Store: store, DistanceMeters: distance})
		if len(nearby) == s.opts.NearLimit {
			break
		}
	}
	return nearby, nil
}

func (s *catalogService) TopRated(ctx context.Context, limit int) (ranked []domain.RatedStore, err error) {
	defer s.observe("top_rated", time.Now(), &err)

	// 上限を超える要求は既定件数に丸める。キャッシュキーも limit ごとなので増やさない。
	if limit <= 0 || limit > s.opts.TopRatedLimit {
		limit = s.opts.TopRatedLimit
	}

	generation, cacheUsable := s.cacheGeneration(ctx)
	if cacheUsable {
		cached, ok, err := s.cache.TopRated(ctx, limit)
		if err != nil {
			s.logger.WarnContext(ctx, "top rated cache read failed", slog.Any("error", err))
		} else if ok {
			return cached, nil
		}
	}

	ranked, err = s.reviews.TopRated(ctx, s.opts.MinReviewsForRank, limit)
	if err != nil {
		return nil, err
	}

	if cacheUsable {
		if err := s.cache.SetTopRated(ctx, generation, limit, ranked); err != nil {
			s.logger.WarnContext(ctx, "top rated cache write failed", slog.Any("error", err))
		}
	}
	return ranked, nil
}

// ToggleFavorite flips storeID in userID's favorite set and returns the resulting set.
func (s *catalogService) ToggleFavorite(ctx context.Context, userID, storeID string) (ids []string, err error) {
	defer s.observe("toggle_favorite", time.Now(), &err)

	userID = strings.TrimSpace(userID)
	storeID = strings.TrimSpace(storeID)
	if userID == "" {
		return nil, domain.NewValidationError("user", "user is required")
	}
	if storeID == "" {
		return nil, domain.NewValidationError("store", "store is required")
	}
	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		return nil, err
	}

	ids, err = s.favorites.Toggle(ctx, userID, storeID)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	return ids, nil
}

func (s *catalogService) Favorites(ctx context.Context, userID string, opts ...ReadOption) (stores []domain.Store, err error) {
	defer s.observe("favorites", time.Now(), &err)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("user", "user is required")
	}
	ids, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Store{}, nil
	}

	stores, err = s.stores.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := s.attachReviewsToAll(ctx, stores, collectReadOptions(opts)); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *catalogService) attachReviews(ctx context.Context, store *domain.Store, o readOptions) error {
	if !o.includeReviews || store == nil {
		return nil
	}
	reviews, err := s.reviews.FindByStore(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("load reviews for %s: %w", store.ID, err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	store.Reviews = reviews
	return nil
}

// attachReviewsToAll joins reviews for a batch of stores with one repository call.
func (s *catalogService) attachReviewsToAll(ctx context.Context, stores []domain.Store, o readOptions) error {
	if !o.includeReviews || len(stores) == 0 {
		return nil
	}
	ids := make([]string, 0, len(stores))
	for _, store := range stores {
		ids = append(ids, store.ID)
	}
	byStore, err := s.reviews.FindByStores(ctx, ids)
	if err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	for i := range stores {
		reviews := byStore[stores[i].ID]
		if reviews == nil {
			reviews = []domain.Review{}
		}
		stores[i].Reviews = reviews
	}
	return nil
}

// cacheGeneration reads the generation before storage is queried, so a result
// computed across a concurrent Invalidate is written as already stale.
func (s *catalogService) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	generation, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "ranking cache generation read failed", slog.Any("error", err))
		return 0, false
	}
	return generation, true
}

func (s *catalogService) invalidateRankings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "ranking cache invalidation failed", slog.Any("error", err))
	}
}

func (s *catalogService) observe(operation string, started time.Time, err *error) {
	s.metrics.ObserveOperation(operation, time.Since(started), *err)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, time.Duration, error) {}
func (nopMetrics) IncSlugConflict()                             {}
