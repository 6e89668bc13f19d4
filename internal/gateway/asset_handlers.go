package gateway

import (
	"net/http"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/gorilla/mux"
)

type registerAssetBody struct {
	Code                 string     `json:"code"`
	Description          string     `json:"description"`
	BrandID              string     `json:"brand_id"`
	Model                string     `json:"model"`
	Serial               string     `json:"serial"`
	AcquisitionCostCents int64      `json:"acquisition_cost_cents"`
	AcquiredAt           *time.Time `json:"acquired_at"`
	ExpectedLifeYears    int        `json:"expected_life_years"`
	InitialStatus        string     `json:"initial_status"`
}

type updateAssetBody struct {
	Description          *string    `json:"description"`
	BrandID              *string    `json:"brand_id"`
	Model                *string    `json:"model"`
	Serial               *string    `json:"serial"`
	AcquisitionCostCents *int64     `json:"acquisition_cost_cents"`
	AcquiredAt           *time.Time `json:"acquired_at"`
	ExpectedLifeYears    *int       `json:"expected_life_years"`
}

type statusBody struct {
	Status string `json:"status"`
}

// requireRegistry 资产登记处的写操作要求 registry 能力。
func (h *Handler) requireRegistry(r *http.Request) (string, error) {
	c, err := caller(r)
	if err != nil {
		return "", err
	}
	if !c.HasCapability(identity.RoleRegistry) {
		return "", apperr.Forbiddenf("caller lacks registry role")
	}
	return c.PersonID, nil
}

func (h *Handler) registerAsset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireRegistry(r); err != nil {
		writeError(w, err)
		return
	}
	var body registerAssetBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.assets.Register(r.Context(), asset.RegisterInput{
		Code:                 body.Code,
		Description:          body.Description,
		BrandID:              body.BrandID,
		Model:                body.Model,
		Serial:               body.Serial,
		AcquisitionCostCents: body.AcquisitionCostCents,
		AcquiredAt:           body.AcquiredAt,
		ExpectedLifeYears:    body.ExpectedLifeYears,
		InitialStatus:        asset.Status(body.InitialStatus),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetView(a))
}

func (h *Handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireRegistry(r); err != nil {
		writeError(w, err)
		return
	}
	var body updateAssetBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.assets.UpdateDetails(r.Context(), mux.Vars(r)["id"], asset.UpdateInput{
		Description:          body.Description,
		BrandID:              body.BrandID,
		Model:                body.Model,
		Serial:               body.Serial,
		AcquisitionCostCents: body.AcquisitionCostCents,
		AcquiredAt:           body.AcquiredAt,
		ExpectedLifeYears:    body.ExpectedLifeYears,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetView(a))
}

func (h *Handler) updateAssetStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireRegistry(r); err != nil {
		writeError(w, err)
		return
	}
	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.assets.UpdateStatus(r.Context(), mux.Vars(r)["id"], asset.Status(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusRecordView(rec))
}

func (h *Handler) assetStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.assets.CurrentStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusRecordView(rec))
}

func (h *Handler) assetHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.assets.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := struct {
		History []statusRecordView `json:"history"`
	}{}
	for i := range recs {
		out.History = append(out.History, toStatusRecordView(&recs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.assets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetView(a))
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	assets, total, err := h.assets.List(r.Context(),
		r.URL.Query().Get("custodian_id"),
		r.URL.Query().Get("location_id"),
		offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := struct {
		Assets []assetView `json:"assets"`
		listMeta
	}{listMeta: listMeta{Total: total}}
	for i := range assets {
		out.Assets = append(out.Assets, toAssetView(&assets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
