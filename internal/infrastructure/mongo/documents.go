package mongo

import (
	"time"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// LocationDocument は GeoJSON Point。2dsphere インデックスの対象。
// coordinates は必ず [経度, 緯度] の順で保存する。
type LocationDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
	Address     string    `bson:"address"`
}

// StoreDocument は MongoDB 上での店舗スキーマを Go 構造体として表現したもの。
type StoreDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug"`
	Description string             `bson:"description,omitempty"`
	Tags        []string           `bson:"tags"`
	Location    LocationDocument   `bson:"location"`
	Photo       string             `bson:"photo,omitempty"`
	Author      string             `bson:"author"`
	Created     time.Time          `bson:"created"`
}

// ReviewDocument はレビュー 1 件。store は店舗の _id を参照する。
type ReviewDocument struct {
	ID      primitive.ObjectID `bson:"_id"`
	Store   primitive.ObjectID `bson:"store"`
	Author  string             `bson:"author,omitempty"`
	Text    string             `bson:"text,omitempty"`
	Rating  float64            `bson:"rating"`
	Created time.Time          `bson:"created"`
}

// FavoriteDocument holds one user's favorite store ids. _id is the user id.
type FavoriteDocument struct {
	UserID string               `bson:"_id"`
	Stores []primitive.ObjectID `bson:"stores"`
}

// searchHitDocument is a store decoded together with its $meta textScore.
type searchHitDocument struct {
	StoreDocument `bson:",inline"`
	Score         float64 `bson:"score"`
}

// ratedStoreDocument is one row of the top-rated aggregation.
type ratedStoreDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	AverageRating float64            `bson:"averageRating"`
	ReviewCount   int                `bson:"reviewCount"`
	Store         StoreDocument      `bson:"store"`
}

type tagCountDocument struct {
	Tag   string `bson:"_id"`
	Count int    `bson:"count"`
}

func mapStoreDocument(doc StoreDocument) domain.Store {
	store := domain.Store{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		Slug:        doc.Slug,
		Description: doc.Description,
		Tags:        append([]string{}, doc.Tags...),
		Location:    mapLocationDocument(doc.Location),
		Photo:       doc.Photo,
		AuthorID:    doc.Author,
		Created:     doc.Created,
	}
	return store
}

func mapLocationDocument(doc LocationDocument) domain.Location {
	loc := domain.Location{
		Type:    domain.PointType,
		Address: doc.Address,
	}
	if len(doc.Coordinates) == 2 {
		loc.Coordinates = orb.Point{doc.Coordinates[0], doc.Coordinates[1]}
	}
	return loc
}

// buildLocationDocument always writes type "Point" regardless of what the caller set.
func buildLocationDocument(loc domain.Location) LocationDocument {
	return LocationDocument{
		Type:        domain.PointType,
		Coordinates: []float64{loc.Coordinates.Lon(), loc.Coordinates.Lat()},
		Address:     loc.Address,
	}
}

func mapReviewDocument(doc ReviewDocument) domain.Review {
	return domain.Review{
		ID:       doc.ID.Hex(),
		StoreID:  doc.Store.Hex(),
		AuthorID: doc.Author,
		Text:     doc.Text,
		Rating:   doc.Rating,
		Created:  doc.Created,
	}
}
