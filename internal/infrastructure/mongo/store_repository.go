package mongo

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// StoreRepository implements application.StoreRepository using MongoDB.
type StoreRepository struct {
	collection *mongo.Collection
}

// NewStoreRepository creates a new Mongo-backed store repository.
func NewStoreRepository(db *mongo.Database, collectionName string) *StoreRepository {
	return &StoreRepository{collection: db.Collection(collectionName)}
}

// Insert は新規店舗を追加し、採番した ID を store に反映する。
// slug のユニークインデックス違反は ConflictError になる。
func (r *StoreRepository) Insert(ctx context.Context, store *domain.Store) error {
	doc := StoreDocument{
		ID:          primitive.NewObjectID(),
		Name:        store.Name,
		Slug:        store.Slug,
		Description: store.Description,
		Tags:        append([]string{}, store.Tags...),
		Location:    buildLocationDocument(store.Location),
		Photo:       store.Photo,
		Author:      store.AuthorID,
		Created:     store.Created.UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err, store.Slug)
	}
	store.ID = doc.ID.Hex()
	store.Location.Type = domain.PointType
	return nil
}

// Update は可変フィールドのみを $set する。author と created は触らない。
func (r *StoreRepository) Update(ctx context.Context, store *domain.Store) error {
	objectID, err := objectIDFromHex("id", store.ID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":        store.Name,
		"slug":        store.Slug,
		"description": store.Description,
		"tags":        append([]string{}, store.Tags...),
		"location":    buildLocationDocument(store.Location),
		"photo":       store.Photo,
	}}
	result, err := r.collection.UpdateByID(ctx, objectID, update)
	if err != nil {
		return mapWriteError(err, store.Slug)
	}
	if result.MatchedCount == 0 {
		return &domain.NotFoundError{Entity: "store", Key: store.ID}
	}
	return nil
}

// FindByID returns a single store by its identifier.
// An id that is not a valid ObjectID cannot name any store and reports NotFoundError.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	objectID, ok := lookupObjectID(id)
	if !ok {
		return nil, &domain.NotFoundError{Entity: "store", Key: id}
	}
	var doc StoreDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		return nil, mapFindError(err, "store", id)
	}
	store := mapStoreDocument(doc)
	return &store, nil
}

// FindBySlug returns the store owning slug.
func (r *StoreRepository) FindBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	var doc StoreDocument
	if err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&doc); err != nil {
		return nil, mapFindError(err, "store", slug)
	}
	store := mapStoreDocument(doc)
	return &store, nil
}

// FindByIDs returns the stores for ids in the order given. Unknown and malformed ids are skipped.
func (r *StoreRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Store, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objectID, ok := lookupObjectID(id); ok {
			objectIDs = append(objectIDs, objectID)
		}
	}
	if len(objectIDs) == 0 {
		return []domain.Store{}, nil
	}

	docs, err := r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Store, len(docs))
	for _, store := range docs {
		byID[store.ID] = store
	}

	stores := make([]domain.Store, 0, len(docs))
	for _, objectID := range objectIDs {
		if store, ok := byID[objectID.Hex()]; ok {
			stores = append(stores, store)
		}
	}
	return stores, nil
}

// CountSlugs は base と base-N にマッチする slug の件数を大文字小文字を無視して数える。
func (r *StoreRepository) CountSlugs(ctx context.Context, base, excludeID string) (int64, error) {
	filter := bson.M{
		"slug": primitive.Regex{Pattern: domain.SlugPattern(base), Options: "i"},
	}
	if strings.TrimSpace(excludeID) != "" {
		objectID, err := objectIDFromHex("id", excludeID)
		if err != nil {
			return 0, err
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}
	return r.collection.CountDocuments(ctx, filter)
}

// FindPage returns stores newest first.
func (r *StoreRepository) FindPage(ctx context.Context, skip, limit int) ([]domain.Store, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

// Count returns the total number of stores.
func (r *StoreRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.D{})
}

// FindByTag returns stores carrying tag, or every tagged store when tag is empty.
func (r *StoreRepository) FindByTag(ctx context.Context, tag string) ([]domain.Store, error) {
	filter := bson.M{"tags": tag}
	if tag == "" {
		filter = bson.M{"tags.0": bson.M{"$exists": true}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, filter, opts)
}

// TagCounts はタグごとの店舗数を件数の多い順で返す。同数はタグ名の昇順。
func (r *StoreRepository) TagCounts(ctx context.Context) ([]domain.TagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tags := make([]domain.TagCount, 0)
	for cursor.Next(ctx) {
		var doc tagCountDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tags = append(tags, domain.TagCount{Tag: doc.Tag, Count: doc.Count})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// SearchText runs a $text query over name and description, best textScore first.
func (r *StoreRepository) SearchText(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	hits := make([]domain.SearchHit, 0)
	for cursor.Next(ctx) {
		var doc searchHitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		hits = append(hits, domain.SearchHit{Store: mapStoreDocument(doc.StoreDocument), Score: doc.Score})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// FindNear は 2dsphere インデックスを使い、近い順に縮約した店舗を返す。
func (r *StoreRepository) FindNear(ctx context.Context, point orb.Point, maxDistanceMeters float64, limit int) ([]domain.Store, error) {
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        domain.PointType,
					"coordinates": bson.A{point.Lon(), point.Lat()},
				},
				"$maxDistance": maxDistanceMeters,
			},
		},
	}
	opts := options.Find().
		SetProjection(bson.M{"slug": 1, "name": 1, "description": 1, "location": 1, "photo": 1}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *StoreRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]domain.Store, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stores := make([]domain.Store, 0)
	for cursor.Next(ctx) {
		var doc StoreDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		stores = append(stores, mapStoreDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}
