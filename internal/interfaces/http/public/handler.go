package public

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/store-catalog/api/internal/catalog/application"
)

const defaultRequestTimeout = 5 * time.Second

// Handler wires public HTTP endpoints to the catalog service.
type Handler struct {
	logger  *slog.Logger
	catalog application.CatalogService
	timeout time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger         *slog.Logger
	Catalog        application.CatalogService
	RequestTimeout time.Duration
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{
		logger:  logger,
		catalog: cfg.Catalog,
		timeout: timeout,
	}
}

// Register mounts all public routes onto the router.
// authMiddleware guards authoring and favorite routes; it must put the user into the context.
func (h *Handler) Register(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/stores", h.storeListHandler())
	r.Get("/stores/page/{page}", h.storePageHandler())
	r.Get("/store/{slug}", h.storeDetailHandler())
	r.Get("/tags", h.tagPageHandler())
	r.Get("/tags/{tag}", h.tagPageHandler())
	r.Get("/top", h.topStoresHandler())
	r.Get("/api/search", h.searchHandler())
	r.Get("/api/stores/near", h.nearHandler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/stores", h.storeCreateHandler())
		r.Get("/stores/{id}/edit", h.storeEditHandler())
		r.Patch("/stores/{id}", h.storeUpdateHandler())
		r.Post("/api/stores/{id}/heart", h.heartToggleHandler())
		r.Get("/hearts", h.heartListHandler())
		r.Get("/auth/verify", h.authVerifyHandler())
	})
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}
