package mongo

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// objectIDFromHex parses an id, reporting malformed input as a validation error.
func objectIDFromHex(field, id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, domain.NewValidationError(field, "malformed id")
	}
	return objectID, nil
}

// lookupObjectID parses an id used only to look something up. Malformed ids
// match nothing, so callers report them as not found instead of invalid.
func lookupObjectID(id string) (primitive.ObjectID, bool) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	return objectID, err == nil
}

// mapFindError converts mongo.ErrNoDocuments into a domain NotFoundError.
func mapFindError(err error, entity, key string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.NotFoundError{Entity: entity, Key: key}
	}
	return err
}

// mapWriteError converts a duplicate key on the slug index into a ConflictError.
func mapWriteError(err error, slug string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return &domain.ConflictError{Slug: slug}
	}
	return err
}
