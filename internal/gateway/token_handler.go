package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/auth"
)

// 开发用令牌签发口。生产环境由外部身份提供方签发同构 JWT，
// 这里只保证声明结构一致（sub / active_role / roles）。

type tokenBody struct {
	PersonID   string   `json:"person_id"`
	ActiveRole string   `json:"active_role"`
	Roles      []string `json:"roles"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(body.PersonID) == "" {
		writeError(w, apperr.Validationf("person_id required"))
		return
	}

	ttl := time.Duration(h.cfg.Auth.TokenTTLMinutes) * time.Minute
	token, expiresAt, err := auth.GenerateAccessToken(h.cfg.Auth, strings.TrimSpace(body.PersonID), strings.TrimSpace(body.ActiveRole), body.Roles, ttl)
	if err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_at":   expiresAt,
	})
}
