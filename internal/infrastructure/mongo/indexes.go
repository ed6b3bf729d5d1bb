package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names.
const (
	StoreTextIndex     = "store_text"
	StoreLocationIndex = "store_location_2dsphere"
	StoreSlugIndex     = "store_slug_unique"
	StoreTagsIndex     = "store_tags"
	StoreCreatedIndex  = "store_created"
	ReviewStoreIndex   = "review_store"
)

// EnsureIndexes は起動時に必要なインデックスを作成する。既存のものはそのまま残る。
// slug のユニークインデックスが同時作成時の衝突検出を担う。
func EnsureIndexes(ctx context.Context, db *mongo.Database, storeCollection, reviewCollection string) error {
	storeIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName(StoreTextIndex),
		},
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName(StoreLocationIndex),
		},
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName(StoreSlugIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName(StoreTagsIndex),
		},
		{
			Keys:    bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName(StoreCreatedIndex),
		},
	}
	if _, err := db.Collection(storeCollection).Indexes().CreateMany(ctx, storeIndexes); err != nil {
		return fmt.Errorf("create %s indexes: %w", storeCollection, err)
	}

	reviewIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "store", Value: 1}, {Key: "created", Value: -1}},
			Options: options.Index().SetName(ReviewStoreIndex),
		},
	}
	if _, err := db.Collection(reviewCollection).Indexes().CreateMany(ctx, reviewIndexes); err != nil {
		return fmt.Errorf("create %s indexes: %w", reviewCollection, err)
	}
	return nil
}
