package public

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
)

// heartToggleHandler flips the store in the caller's favorites and returns the resulting set.
func (h *Handler) heartToggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		hearts, err := h.catalog.ToggleFavorite(ctx, user.ID, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		if hearts == nil {
			hearts = []string{}
		}
		common.WriteJSON(h.logger, w, http.StatusOK, heartsResponse{Hearts: hearts})
	}
}

func (h *Handler) heartListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		stores, err := h.catalog.Favorites(ctx, user.ID, readOptions(r)...)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, newStoreResponses(stores))
	}
}
