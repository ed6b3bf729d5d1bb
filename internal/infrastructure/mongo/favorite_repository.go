package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FavoriteRepository persists each user's favorite store set as one document.
type FavoriteRepository struct {
	collection *mongo.Collection
}

func NewFavoriteRepository(db *mongo.Database, collectionName string) *FavoriteRepository {
	return &FavoriteRepository{collection: db.Collection(collectionName)}
}

// Toggle は 1 回の FindOneAndUpdate (パイプライン更新) で集合への追加/削除を切り替える。
// 読み取ってから書き戻さないので、同一ユーザーの同時トグルでも更新が失われない。
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, storeID string) ([]string, error) {
	objectID, err := objectIDFromHex("store", storeID)
	if err != nil {
		return nil, err
	}

	current := bson.D{{Key: "$ifNull", Value: bson.A{"$stores", bson.A{}}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stores", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{objectID, current}}}},
				{Key: "then", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: current},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", objectID}}}},
				}}}},
				{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{current, bson.A{objectID}}}}},
			}}}},
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc FavoriteDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": strings.TrimSpace(userID)}, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return favoriteIDs(doc), nil
}

// List returns the user's favorite store ids. A user without a document has none.
func (r *FavoriteRepository) List(ctx context.Context, userID string) ([]string, error) {
	var doc FavoriteDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": strings.TrimSpace(userID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return favoriteIDs(doc), nil
}

func favoriteIDs(doc FavoriteDocument) []string {
	ids := make([]string, 0, len(doc.Stores))
	for _, id := range doc.Stores {
		ids = append(ids, id.Hex())
	}
	return ids
}
