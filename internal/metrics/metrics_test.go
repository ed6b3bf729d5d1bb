package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

func TestMetrics_Register(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.ObserveOperation("create", 10*time.Millisecond, nil)
	m.IncSlugConflict()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names[MetricOperationsTotal])
	assert.True(t, names[MetricOperationDuration])
	assert.True(t, names[MetricSlugConflicts])

	assert.Error(t, m.Register(reg), "double registration must fail")
}

func TestMetrics_ObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("update", time.Millisecond, nil)
	m.ObserveOperation("update", time.Millisecond, &domain.OwnershipError{StoreID: "s", UserID: "u"})
	m.ObserveOperation("update", time.Millisecond, &domain.OwnershipError{StoreID: "s", UserID: "u"})
	m.IncSlugConflict()
	m.IncSlugConflict()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("update", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("update", OutcomeNotOwner)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.slugConflicts))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{domain.NewValidationError("name", "required"), OutcomeValidation},
		{&domain.NotFoundError{Entity: "store", Key: "x"}, OutcomeNotFound},
		{&domain.OwnershipError{}, OutcomeNotOwner},
		{&domain.ConflictError{Slug: "palace", Attempts: 5}, OutcomeConflict},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}
