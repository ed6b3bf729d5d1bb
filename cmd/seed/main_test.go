package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistribute(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	counts := distribute(20, 5, 1, 8, rng)
	sum := 0
	for _, c := range counts {
		assert.GreaterOrEqual(t, c, 1)
		assert.LessOrEqual(t, c, 8)
		sum += c
	}
	assert.Equal(t, 20, sum)

	capped := distribute(100, 2, 0, 8, rng)
	assert.Equal(t, []int{8, 8}, capped)

	assert.Nil(t, distribute(5, 0, 0, 8, rng))
}

func TestPickUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	picked := pickUnique(rng, storeTags, 3)
	assert.Len(t, picked, 3)
	seen := map[string]bool{}
	for _, tag := range picked {
		assert.False(t, seen[tag])
		seen[tag] = true
	}

	assert.Equal(t, storeTags, pickUnique(rng, storeTags, 99))
	assert.Empty(t, pickUnique(rng, storeTags, 0))
}

func TestGenerateStore(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	cmd, err := generateStore(rng, 1, []string{"a1"})
	assert.NoError(t, err)
	assert.Equal(t, "Café Olé", cmd.Name)
	assert.Equal(t, "a1", cmd.AuthorID)
	assert.InDelta(t, origin[0], cmd.Location.Coordinates.Lon(), 0.051)
	assert.InDelta(t, origin[1], cmd.Location.Coordinates.Lat(), 0.051)
}
