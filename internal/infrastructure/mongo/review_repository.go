package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// ReviewRepository reads reviews and computes the store ranking from them.
type ReviewRepository struct {
	reviews         *mongo.Collection
	storeCollection string
}

// NewReviewRepository binds the review collection. storeCollection is the $lookup target.
func NewReviewRepository(db *mongo.Database, reviewCollection, storeCollection string) *ReviewRepository {
	return &ReviewRepository{
		reviews:         db.Collection(reviewCollection),
		storeCollection: storeCollection,
	}
}

// Insert adds a review. Reviews are owned elsewhere; this exists for seeding and tests.
func (r *ReviewRepository) Insert(ctx context.Context, review *domain.Review) error {
	storeID, err := objectIDFromHex("store", review.StoreID)
	if err != nil {
		return err
	}
	created := review.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	doc := ReviewDocument{
		ID:      primitive.NewObjectID(),
		Store:   storeID,
		Author:  review.AuthorID,
		Text:    review.Text,
		Rating:  review.Rating,
		Created: created,
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		return err
	}
	review.ID = doc.ID.Hex()
	review.Created = created
	return nil
}

// FindByStore returns the reviews of one store, newest first.
func (r *ReviewRepository) FindByStore(ctx context.Context, storeID string) ([]domain.Review, error) {
	objectID, err := objectIDFromHex("store", storeID)
	if err != nil {
		return nil, err
	}
	byStore, err := r.findGrouped(ctx, bson.M{"store": objectID})
	if err != nil {
		return nil, err
	}
	return byStore[objectID.Hex()], nil
}

// FindByStores は複数店舗のレビューを 1 クエリでまとめて取得し、店舗 ID ごとに振り分ける。
func (r *ReviewRepository) FindByStores(ctx context.Context, storeIDs []string) (map[string][]domain.Review, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(storeIDs))
	for _, id := range storeIDs {
		objectID, err := objectIDFromHex("store", id)
		if err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return map[string][]domain.Review{}, nil
	}
	return r.findGrouped(ctx, bson.M{"store": bson.M{"$in": objectIDs}})
}

func (r *ReviewRepository) findGrouped(ctx context.Context, filter bson.M) (map[string][]domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[string][]domain.Review)
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		review := mapReviewDocument(doc)
		result[review.StoreID] = append(result[review.StoreID], review)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// TopRated groups reviews by store in one pass, drops stores with fewer than
// minReviews reviews, and joins the surviving stores. Ties on the average are
// ordered by store id so a fixed snapshot always yields the same ranking.
func (r *ReviewRepository) TopRated(ctx context.Context, minReviews, limit int) ([]domain.RatedStore, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$store"},
			{Key: "averageRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "reviewCount", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "reviewCount", Value: bson.D{{Key: "$gte", Value: minReviews}}}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: r.storeCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "store"},
		}}},
		{{Key: "$unwind", Value: "$store"}},
		{{Key: "$sort", Value: bson.D{{Key: "averageRating", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ranked := make([]domain.RatedStore, 0)
	for cursor.Next(ctx) {
		var doc ratedStoreDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ranked = append(ranked, domain.RatedStore{
			Store:         mapStoreDocument(doc.Store),
			AverageRating: doc.AverageRating,
			ReviewCount:   doc.ReviewCount,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ranked, nil
}
