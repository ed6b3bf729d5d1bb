package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/store-catalog/api/internal/catalog/application"
	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
	"github.com/sngm3741/store-catalog/api/internal/config"
	mongodoc "github.com/sngm3741/store-catalog/api/internal/infrastructure/mongo"
	"github.com/sngm3741/store-catalog/api/internal/logging"
)

type seedOptions struct {
	storeCount      int
	reviewCount     int
	authorCount     int
	dropCollections bool
	randomSeed      int64
}

// seedConfig は API と同じ環境変数を読むが、JWT シークレットは要求しない。
type seedConfig struct {
	Mongo config.MongoConfig
	Log   config.LogConfig
}

var (
	storeNames = []string{
		"Blue Bottle", "Café Olé", "Bob's Diner", "Noodle House", "Green Leaf",
		"Blue Bottle", "Sushi Bar Ichi", "The Corner Bakery", "Crème Brûlée Lab", "Noodle House",
		"Harbor Coffee", "Matcha Stand", "Izakaya Kaze", "Smoke & Barrel", "Tofu Works",
	}
	storeTags = []string{"wifi", "vegan", "open late", "family friendly", "licensed", "takeout"}
	addresses = []string{"Chiyoda, Tokyo", "Shibuya, Tokyo", "Minato, Tokyo", "Shinjuku, Tokyo", "Taito, Tokyo"}
	comments  = []string{
		"Friendly staff and quick service.",
		"Nice place, a bit crowded at lunch.",
		"Would come back for the desserts.",
		"Quiet and good for working.",
		"Prices are fair for the quality.",
	}
)

// 東京駅付近を中心に店舗を散らす。
var origin = [2]float64{139.7671, 35.6812}

func main() {
	opts := parseFlags()

	var cfg seedConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "環境変数の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(logger, cfg.Mongo, opts); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg config.MongoConfig, opts seedOptions) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(cfg.Database)

	if opts.dropCollections {
		for _, name := range []string{cfg.StoreCollection, cfg.ReviewCollection, cfg.FavoriteCollection} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				logger.Warn("コレクション削除に失敗", slog.String("collection", name), slog.Any("error", err))
			}
		}
		logger.Info("既存コレクションを削除しました")
	}

	if err := mongodoc.EnsureIndexes(ctx, db, cfg.StoreCollection, cfg.ReviewCollection); err != nil {
		return fmt.Errorf("インデックス作成に失敗しました: %w", err)
	}

	reviews := mongodoc.NewReviewRepository(db, cfg.ReviewCollection, cfg.StoreCollection)
	catalog := application.NewCatalogService(application.Dependencies{
		Stores:    mongodoc.NewStoreRepository(db, cfg.StoreCollection),
		Reviews:   reviews,
		Favorites: mongodoc.NewFavoriteRepository(db, cfg.FavoriteCollection),
		Logger:    logger,
	}, application.Options{})

	rng := rand.New(rand.NewSource(opts.randomSeed))
	authors := make([]string, opts.authorCount)
	for i := range authors {
		authors[i] = fmt.Sprintf("seed-author-%d", i+1)
	}

	stores := make([]*domain.Store, 0, opts.storeCount)
	for i := 0; i < opts.storeCount; i++ {
		cmd, err := generateStore(rng, i, authors)
		if err != nil {
			return err
		}
		store, err := catalog.Create(ctx, cmd)
		if err != nil {
			return fmt.Errorf("店舗データの挿入に失敗しました: %w", err)
		}
		stores = append(stores, store)
	}

	counts := distribute(opts.reviewCount, len(stores), 0, 8, rng)
	inserted := 0
	for i, store := range stores {
		for j := 0; j < counts[i]; j++ {
			review := generateReview(rng, store.ID, authors)
			if err := reviews.Insert(ctx, &review); err != nil {
				return fmt.Errorf("レビューの挿入に失敗しました: %w", err)
			}
			inserted++
		}
	}

	logger.Info("Seed 完了",
		slog.Int("stores", len(stores)),
		slog.Int("reviews", inserted),
		slog.String("database", cfg.Database),
		slog.Int64("seed", opts.randomSeed),
	)
	return nil
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.IntVar(&opts.storeCount, "stores", 15, "生成する店舗数")
	flag.IntVar(&opts.reviewCount, "reviews", 40, "生成するレビュー総数")
	flag.IntVar(&opts.authorCount, "authors", 3, "投稿者の人数")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	flag.Int64Var(&opts.randomSeed, "seed", time.Now().UnixNano(), "乱数シード（再現用）")
	flag.Parse()

	if opts.storeCount <= 0 {
		fmt.Fprintln(os.Stderr, "stores は 1 以上を指定してください")
		os.Exit(2)
	}
	if opts.authorCount <= 0 {
		opts.authorCount = 1
	}
	if opts.reviewCount < 0 {
		opts.reviewCount = 0
	}
	return opts
}

func generateStore(rng *rand.Rand, i int, authors []string) (application.CreateStoreCommand, error) {
	name := storeNames[i%len(storeNames)]
	lng := origin[0] + (rng.Float64()-0.5)*0.1
	lat := origin[1] + (rng.Float64()-0.5)*0.1
	location, err := domain.NewLocation(round(lng, 6), round(lat, 6), addresses[rng.Intn(len(addresses))])
	if err != nil {
		return application.CreateStoreCommand{}, err
	}
	return application.CreateStoreCommand{
		Name:        name,
		Description: fmt.Sprintf("%s near %s.", name, location.Address),
		Tags:        pickUnique(rng, storeTags, rng.Intn(4)),
		Location:    location,
		AuthorID:    authors[rng.Intn(len(authors))],
	}, nil
}

func generateReview(rng *rand.Rand, storeID string, authors []string) domain.Review {
	return domain.Review{
		StoreID:  storeID,
		AuthorID: authors[rng.Intn(len(authors))],
		Text:     comments[rng.Intn(len(comments))],
		Rating:   float64(1 + rng.Intn(5)),
		Created:  time.Now().Add(-time.Duration(rng.Intn(90*24)) * time.Hour),
	}
}

// distribute は total を buckets 個に min..max の範囲で配る。収まらない分は捨てる。
func distribute(total, buckets, minPerBucket, maxPerBucket int, rng *rand.Rand) []int {
	if buckets <= 0 {
		return nil
	}
	if maxPerBucket < minPerBucket {
		maxPerBucket = minPerBucket
	}
	if capacity := buckets * maxPerBucket; total > capacity {
		total = capacity
	}
	counts := make([]int, buckets)
	for i := range counts {
		counts[i] = minPerBucket
	}
	remaining := total - minPerBucket*buckets
	for remaining > 0 {
		i := rng.Intn(buckets)
		if counts[i] >= maxPerBucket {
			continue
		}
		counts[i]++
		remaining--
	}
	return counts
}

func pickUnique(rng *rand.Rand, source []string, count int) []string {
	if count >= len(source) {
		return append([]string(nil), source...)
	}
	result := make([]string, 0, count)
	for _, idx := range rng.Perm(len(source))[:count] {
		result = append(result, source[idx])
	}
	return result
}

func round(val float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(val*p) / p
}
