package public

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
	"github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
)

// tagPageHandler はタグ別の店舗とタグ件数を並行に取得する。タグ未指定ならタグ付き店舗すべて。
func (h *Handler) tagPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := chi.URLParam(r, "tag")
		if unescaped, err := url.PathUnescape(tag); err == nil {
			tag = unescaped
		}
		tag = strings.TrimSpace(tag)

		ctx, cancel := h.requestContext(r)
		defer cancel()

		var (
			stores []domain.Store
			tags   []domain.TagCount
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			stores, err = h.catalog.ListByTag(gctx, tag, readOptions(r)...)
			return err
		})
		g.Go(func() error {
			var err error
			tags, err = h.catalog.TagCounts(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, tagPageResponse{
			Tag:    tag,
			Tags:   newTagCountResponses(tags),
			Stores: newStoreResponses(stores),
		})
	}
}

func (h *Handler) topStoresHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := common.ParsePositiveInt(r.URL.Query().Get("limit"), 0)
		if limit > common.MaxTopStoresLimit {
			limit = common.MaxTopStoresLimit
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		ranked, err := h.catalog.TopRated(ctx, limit)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		items := make([]ratedStoreResponse, 0, len(ranked))
		for _, rated := range ranked {
			items = append(items, newRatedStoreResponse(rated))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, items)
	}
}

func (h *Handler) searchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()

		hits, err := h.catalog.SearchText(ctx, r.URL.Query().Get("q"))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		items := make([]searchHitResponse, 0, len(hits))
		for _, hit := range hits {
			items = append(items, searchHitResponse{
				storeResponse: newStoreResponse(hit.Store),
				Score:         hit.Score,
			})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, items)
	}
}

func (h *Handler) nearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		lng, err := common.ParseFloat("lng", query.Get("lng"))
		if err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}
		lat, err := common.ParseFloat("lat", query.Get("lat"))
		if err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		nearby, err := h.catalog.FindNear(ctx, lng, lat)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		items := make([]nearbyStoreResponse, 0, len(nearby))
		for _, n := range nearby {
			items = append(items, nearbyStoreResponse{
				Slug:           n.Store.Slug,
				Name:           n.Store.Name,
				Description:    n.Store.Description,
				Location:       newLocationPayload(n.Store.Location),
				Photo:          n.Store.Photo,
				DistanceMeters: n.DistanceMeters,
			})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, items)
	}
}
