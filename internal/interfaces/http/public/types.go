package public

import (
	"math"
	"time"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

type locationPayload struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address"`
}

type storeResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags"`
	Location    locationPayload  `json:"location"`
	Photo       string           `json:"photo,omitempty"`
	Author      string           `json:"author"`
	Created     time.Time        `json:"created"`
	Reviews     []reviewResponse `json:"reviews"`
}

type reviewResponse struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text,omitempty"`
	Rating  float64   `json:"rating"`
	Created time.Time `json:"created"`
}

type storePageResponse struct {
	Items      []storeResponse `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"totalPages"`
}

type tagCountResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type tagPageResponse struct {
	Tag    string             `json:"tag,omitempty"`
	Tags   []tagCountResponse `json:"tags"`
	Stores []storeResponse    `json:"stores"`
}

type searchHitResponse struct {
	storeResponse
	Score float64 `json:"score"`
}

// nearbyStoreResponse は近傍検索の射影 (slug, name, description, location, photo) と距離。
type nearbyStoreResponse struct {
	Slug           string          `json:"slug"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Location       locationPayload `json:"location"`
	Photo          string          `json:"photo,omitempty"`
	DistanceMeters float64         `json:"distanceMeters"`
}

type ratedStoreResponse struct {
	Store         storeResponse `json:"store"`
	AverageRating float64       `json:"averageRating"`
	ReviewCount   int           `json:"reviewCount"`
}

type heartsResponse struct {
	Hearts []string `json:"hearts"`
}

type createStoreRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Location    locationPayload `json:"location"`
	Photo       string          `json:"photo"`
}

// updateStoreRequest は部分更新。省略したフィールドは変更しない。
type updateStoreRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Tags        *[]string        `json:"tags"`
	Location    *locationPayload `json:"location"`
	Photo       *string          `json:"photo"`
}

func newLocationPayload(loc domain.Location) locationPayload {
	return locationPayload{
		Type:        domain.PointType,
		Coordinates: []float64{loc.Coordinates.Lon(), loc.Coordinates.Lat()},
		Address:     loc.Address,
	}
}

// toDomain は type を無視し常に Point として扱う。
func (p locationPayload) toDomain() (domain.Location, error) {
	if len(p.Coordinates) != 2 {
		return domain.Location{}, domain.NewValidationError("location.coordinates", "coordinates must be [lng, lat]")
	}
	return domain.NewLocation(p.Coordinates[0], p.Coordinates[1], p.Address)
}

func newStoreResponse(store domain.Store) storeResponse {
	tags := store.Tags
	if tags == nil {
		tags = []string{}
	}
	resp := storeResponse{
		ID:          store.ID,
		Name:        store.Name,
		Slug:        store.Slug,
		Description: store.Description,
		Tags:        tags,
		Location:    newLocationPayload(store.Location),
		Photo:       store.Photo,
		Author:      store.AuthorID,
		Created:     store.Created,
	}
	if store.Reviews != nil {
		resp.Reviews = make([]reviewResponse, 0, len(store.Reviews))
		for _, review := range store.Reviews {
			resp.Reviews = append(resp.Reviews, reviewResponse{
				ID:      review.ID,
				Author:  review.AuthorID,
				Text:    review.Text,
				Rating:  review.Rating,
				Created: review.Created,
			})
		}
	}
	return resp
}

func newStoreResponses(stores []domain.Store) []storeResponse {
	items := make([]storeResponse, 0, len(stores))
	for _, store := range stores {
		items = append(items, newStoreResponse(store))
	}
	return items
}

func newTagCountResponses(tags []domain.TagCount) []tagCountResponse {
	items := make([]tagCountResponse, 0, len(tags))
	for _, t := range tags {
		items = append(items, tagCountResponse{Tag: t.Tag, Count: t.Count})
	}
	return items
}

func newRatedStoreResponse(rated domain.RatedStore) ratedStoreResponse {
	return ratedStoreResponse{
		Store:         newStoreResponse(rated.Store),
		AverageRating: math.Round(rated.AverageRating*10) / 10,
		ReviewCount:   rated.ReviewCount,
	}
}
