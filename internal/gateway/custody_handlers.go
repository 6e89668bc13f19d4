package gateway

import (
	"net/http"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/gorilla/mux"
)

type assignBody struct {
	CustodianID string   `json:"custodian_id"`
	LocationID  string   `json:"location_id"`
	AssetIDs    []string `json:"asset_ids"`
}

func (h *Handler) assignAssets(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !c.HasCapability(identity.RoleRegistry) {
		writeError(w, apperr.Forbiddenf("caller lacks registry role"))
		return
	}
	var body assignBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.ledger.Assign(r.Context(), custody.AssignInput{
		AssetIDs:    body.AssetIDs,
		CustodianID: body.CustodianID,
		LocationID:  body.LocationID,
		ActorID:     c.PersonID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := struct {
		Assignments []assignmentView    `json:"assignments"`
		Errors      []custody.ItemError `json:"errors,omitempty"`
	}{Errors: result.Errors}
	for i := range result.Assignments {
		out.Assignments = append(out.Assignments, toAssignmentView(&result.Assignments[i]))
	}
	// 部分失败不是整体失败：只要调用本身合法就返回 200
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) unassignAsset(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !c.HasCapability(identity.RoleRegistry) {
		writeError(w, apperr.Forbiddenf("caller lacks registry role"))
		return
	}
	if err := h.ledger.Unassign(r.Context(), mux.Vars(r)["id"], c.PersonID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) getAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentView(a))
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	activeOnly := r.URL.Query().Get("active") == "true"
	out, total, err := h.ledger.List(r.Context(), r.URL.Query().Get("custodian_id"), activeOnly, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := struct {
		Assignments []assignmentView `json:"assignments"`
		listMeta
	}{listMeta: listMeta{Total: total}}
	for i := range out {
		resp.Assignments = append(resp.Assignments, toAssignmentView(&out[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) assetMovements(w http.ResponseWriter, r *http.Request) {
	recs, err := h.ledger.MovementHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := struct {
		Movements []movementView `json:"movements"`
	}{}
	for i := range recs {
		out.Movements = append(out.Movements, toMovementView(&recs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
