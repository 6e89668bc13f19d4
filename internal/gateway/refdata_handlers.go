package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/refdata"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// 参照数据是纯键值档案：处理器直接用仓储，不单独建服务层。

type locationBody struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Campus  string `json:"campus"`
	Address string `json:"address"`
}

func (h *Handler) upsertLocation(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireRegistry(r); err != nil {
		writeError(w, err)
		return
	}
	var body locationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, apperr.Validationf("name required"))
		return
	}
	l := &refdata.Location{
		ID:      strings.TrimSpace(body.ID),
		Name:    strings.TrimSpace(body.Name),
		Campus:  strings.TrimSpace(body.Campus),
		Address: strings.TrimSpace(body.Address),
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if err := h.refdata.UpsertLocation(r.Context(), l); err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	l, err := h.refdata.FindLocation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, apperr.NotFoundf("location not found"))
			return
		}
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.refdata.ListLocations(r.Context())
	if err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"locations": out})
}

type brandBody struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) upsertBrand(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireRegistry(r); err != nil {
		writeError(w, err)
		return
	}
	var body brandBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, apperr.Validationf("name required"))
		return
	}
	b := &refdata.Brand{ID: strings.TrimSpace(body.ID), Name: strings.TrimSpace(body.Name)}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := h.refdata.UpsertBrand(r.Context(), b); err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) listBrands(w http.ResponseWriter, r *http.Request) {
	out, err := h.refdata.ListBrands(r.Context())
	if err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"brands": out})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	out, err := h.refdata.ListRoles(r.Context())
	if err != nil {
		writeError(w, apperr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"roles": out})
}
