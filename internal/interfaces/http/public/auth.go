package public

import (
	"net/http"

	"github.com/sngm3741/store-catalog/api/internal/interfaces/http/common"
)

func (h *Handler) authVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := common.UserFromContext(r.Context())
		if !ok {
			common.WriteMessage(h.logger, w, http.StatusUnauthorized, "認証情報の取得に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"status": "ok",
			"user":   user,
		})
	}
}

// currentUser writes 401 and returns false when the request carries no user.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (common.AuthenticatedUser, bool) {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		common.WriteMessage(h.logger, w, http.StatusUnauthorized, "ログインが必要です")
		return common.AuthenticatedUser{}, false
	}
	return user, true
}
