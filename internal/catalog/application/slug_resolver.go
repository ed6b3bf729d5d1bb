package application

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// SlugLookup counts committed slugs matching base or base-N, ignoring excludeID.
type SlugLookup interface {
	CountSlugs(ctx context.Context, base, excludeID string) (int64, error)
}

// SlugResolver derives slugs from display names.
// It only proposes candidates; uniqueness is enforced by storage.
type SlugResolver struct {
	lookup SlugLookup
}

// NewSlugResolver creates a resolver backed by lookup.
func NewSlugResolver(lookup SlugLookup) *SlugResolver {
	return &SlugResolver{lookup: lookup}
}

// Resolve returns base when nothing matches yet, base-(N+1) when N slugs match.
func (r *SlugResolver) Resolve(ctx context.Context, name, excludeID string) (string, error) {
	return r.Next(ctx, name, excludeID, nil)
}

// Next is Resolve skipping every candidate already in rejected.
// Callers pass the slugs that lost a commit race so a retry never repeats one.
func (r *SlugResolver) Next(ctx context.Context, name, excludeID string, rejected map[string]struct{}) (string, error) {
	base := domain.NormalizeSlug(name)
	taken, err := r.lookup.CountSlugs(ctx, base, excludeID)
	if err != nil {
		return "", fmt.Errorf("count slugs %q: %w", base, err)
	}

	n := int(taken)
	candidate := domain.SlugCandidate(base, n)
	for {
		if _, ok := rejected[candidate]; !ok {
			return candidate, nil
		}
		n++
		candidate = domain.SlugCandidate(base, n)
	}
}

// slugFitsName reports whether slug already belongs to the family of name's base slug.
func slugFitsName(slug, name string) bool {
	if slug == "" {
		return false
	}
	re, err := regexp.Compile("(?i)" + domain.SlugPattern(domain.NormalizeSlug(name)))
	if err != nil {
		return false
	}
	return re.MatchString(slug)
}
