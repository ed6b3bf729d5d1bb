package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("name", "name is required"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("load: %w", &domain.NotFoundError{Entity: "store", Key: "x"}), http.StatusNotFound},
		{"not owner", &domain.OwnershipError{StoreID: "s", UserID: "u"}, http.StatusForbidden},
		{"conflict", &domain.ConflictError{Slug: "palace", Attempts: 5}, http.StatusConflict},
		{"unknown", errors.New("socket closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteError_ValidationCarriesField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stores", nil)

	WriteError(nil, rec, req, domain.NewValidationError("location.address", "address is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "location.address", body["field"])
	assert.Equal(t, "address is required", body["error"])
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stores", nil)

	WriteError(nil, rec, req, errors.New("mongo: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestParsePositiveInt(t *testing.T) {
	v, ok := ParsePositiveInt(" 3 ", 1)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	for _, in := range []string{"", "0", "-2", "abc"} {
		v, ok := ParsePositiveInt(in, 1)
		assert.False(t, ok, in)
		assert.Equal(t, 1, v, in)
	}
}

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat("lng", "139.69")
	require.NoError(t, err)
	assert.InDelta(t, 139.69, v, 1e-9)

	_, err = ParseFloat("lng", "")
	assert.Error(t, err)
	_, err = ParseFloat("lat", "north")
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserFromContext(ContextWithUser(context.Background(), AuthenticatedUser{}))
	assert.False(t, ok, "blank id is anonymous")

	ctx := ContextWithUser(context.Background(), AuthenticatedUser{ID: "u1", Name: "Wes"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
