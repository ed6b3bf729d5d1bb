package public

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/store-catalog/api/internal/catalog/application"
	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
	"github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
)

func (h *Handler) storeListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := common.ParsePositiveInt(r.URL.Query().Get("page"), 1)
		h.writeStorePage(w, r, page)
	}
}

// storePageHandler は範囲外のページを最終ページへ、不正なページ番号を 1 ページ目へリダイレクトする。
func (h *Handler) storePageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := common.ParsePositiveInt(chi.URLParam(r, "page"), 1)
		if !ok {
			http.Redirect(w, r, pagePath(1), http.StatusFound)
			return
		}
		h.writeStorePage(w, r, page)
	}
}

func (h *Handler) writeStorePage(w http.ResponseWriter, r *http.Request, page int) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.catalog.ListPage(ctx, page, readOptions(r)...)
	if err != nil {
		common.WriteError(h.logger, w, r, err)
		return
	}
	if result.OutOfRange() {
		http.Redirect(w, r, pagePath(result.TotalPages), http.StatusFound)
		return
	}

	common.WriteJSON(h.logger, w, http.StatusOK, storePageResponse{
		Items:      newStoreResponses(result.Stores),
		Page:       result.Number,
		PageSize:   result.Size,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) storeDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		store, err := h.catalog.GetBySlug(ctx, slug, readOptions(r)...)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, newStoreResponse(*store))
	}
}

func (h *Handler) storeCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		var req createStoreRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, fmt.Sprintf("リクエストの形式が不正です: %v", err))
			return
		}
		if err := checkLimits(&req.Description, &req.Tags); err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		location, err := req.Location.toDomain()
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		store, err := h.catalog.Create(ctx, application.CreateStoreCommand{
			Name:        req.Name,
			Description: req.Description,
			Tags:        req.Tags,
			Location:    location,
			Photo:       req.Photo,
			AuthorID:    user.ID,
		})
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		w.Header().Set("Location", "/store/"+store.Slug)
		common.WriteJSON(h.logger, w, http.StatusCreated, newStoreResponse(*store))
	}
}

// storeEditHandler returns the store only to its author.
func (h *Handler) storeEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		store, err := h.catalog.Editable(ctx, user.ID, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, newStoreResponse(*store))
	}
}

func (h *Handler) storeUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		var req updateStoreRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, fmt.Sprintf("リクエストの形式が不正です: %v", err))
			return
		}
		if err := checkLimits(req.Description, req.Tags); err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		cmd := application.UpdateStoreCommand{
			ActorID:     user.ID,
			Name:        req.Name,
			Description: req.Description,
			Tags:        req.Tags,
			Photo:       req.Photo,
		}
		if req.Location != nil {
			location, err := req.Location.toDomain()
			if err != nil {
				common.WriteError(h.logger, w, r, err)
				return
			}
			cmd.Location = &location
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		store, err := h.catalog.Update(ctx, chi.URLParam(r, "id"), cmd)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, newStoreResponse(*store))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, common.MaxStoreRequestBody))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body is empty")
		}
		return err
	}
	return nil
}

func checkLimits(description *string, tags *[]string) error {
	if description != nil && utf8.RuneCountInString(*description) > common.MaxStoreDescriptionRunes {
		return domain.NewValidationError("description", fmt.Sprintf("description must be at most %d characters", common.MaxStoreDescriptionRunes))
	}
	if tags != nil && len(*tags) > common.MaxStoreTagCount {
		return domain.NewValidationError("tags", fmt.Sprintf("at most %d tags are allowed", common.MaxStoreTagCount))
	}
	return nil
}

// readOptions maps ?reviews=false onto the review join toggle.
func readOptions(r *http.Request) []application.ReadOption {
	raw := strings.TrimSpace(r.URL.Query().Get("reviews"))
	if raw == "" {
		return nil
	}
	include, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return []application.ReadOption{application.WithReviews(include)}
}

func pagePath(page int) string {
	return "/stores/page/" + strconv.Itoa(page)
}
