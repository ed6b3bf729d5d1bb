package domain

import (
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// PointType is the only GeoJSON geometry a store location may carry.
const PointType = "Point"

// Location は GeoJSON Point 形式の店舗所在地。Coordinates は [経度, 緯度] の順。
type Location struct {
	Type        string
	Coordinates orb.Point
	Address     string
}

// NewLocation builds a Point location from longitude/latitude and validates it.
func NewLocation(lng, lat float64, address string) (Location, error) {
	loc := Location{
		Type:        PointType,
		Coordinates: orb.Point{lng, lat},
		Address:     strings.TrimSpace(address),
	}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate checks coordinate ranges and the presence of an address.
func (l Location) Validate() error {
	if err := ValidateCoordinates(l.Coordinates.Lon(), l.Coordinates.Lat()); err != nil {
		return err
	}
	if strings.TrimSpace(l.Address) == "" {
		return NewValidationError("location.address", "address is required")
	}
	return nil
}

// ValidateCoordinates rejects non-finite or out-of-range longitude/latitude pairs.
func ValidateCoordinates(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return NewValidationError("location.coordinates", "longitude must be within [-180, 180]")
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return NewValidationError("location.coordinates", "latitude must be within [-90, 90]")
	}
	return nil
}

// Store is a catalog entry for a physical business location.
// Reviews is nil unless the read populated it.
type Store struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Tags        []string
	Location    Location
	Photo       string
	AuthorID    string
	Created     time.Time
	Reviews     []Review
}

// Validate checks the fields required before a store may be persisted.
func (s Store) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if strings.TrimSpace(s.AuthorID) == "" {
		return NewValidationError("author", "author is required")
	}
	return s.Location.Validate()
}

// OwnedBy reports whether userID is the recorded author.
func (s Store) OwnedBy(userID string) bool {
	return s.AuthorID != "" && s.AuthorID == userID
}

// Review is an externally owned rating record referencing a store.
type Review struct {
	ID       string
	StoreID  string
	AuthorID string
	Text     string
	Rating   float64
	Created  time.Time
}

// RatedStore は集計結果 1 件。AverageRating は永続化されない。
type RatedStore struct {
	Store         Store
	AverageRating float64
	ReviewCount   int
}

// NearbyStore is a projected store together with its great-circle distance from the query point.
type NearbyStore struct {
	Store          Store
	DistanceMeters float64
}

// SearchHit is a text search match with the storage engine's relevance score.
type SearchHit struct {
	Store Store
	Score float64
}

// TagCount is the number of stores carrying a tag.
type TagCount struct {
	Tag   string
	Count int
}

// Page is one page of the store listing.
type Page struct {
	Stores     []Store
	Number     int
	Size       int
	Total      int64
	TotalPages int
}

// OutOfRange reports whether Number lies past the last page that has results.
func (p Page) OutOfRange() bool {
	return p.TotalPages > 0 && p.Number > p.TotalPages
}

// TotalPages returns ceil(total/size), zero when there is nothing to list.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// NormalizeTags trims tags and drops empty entries. Duplicates and order are kept.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		result = append(result, tag)
	}
	return result
}
