package gateway

import (
	"net/http"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/loan"
	"github.com/gorilla/mux"
)

type createRequestBody struct {
	DestinationLocationID string    `json:"destination_location_id"`
	Purpose               string    `json:"purpose"`
	LoanStart             time.Time `json:"loan_start"`
	LoanEnd               time.Time `json:"loan_end"`
	Observations          string    `json:"observations"`
	Items                 []struct {
		AssignmentID string `json:"assignment_id"`
		Quantity     int    `json:"quantity"`
		Description  string `json:"description"`
	} `json:"items"`
}

type signBody struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

type noteBody struct {
	Note string `json:"note"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	in := loan.CreateInput{
		DestinationLocationID: body.DestinationLocationID,
		Purpose:               body.Purpose,
		LoanStart:             body.LoanStart,
		LoanEnd:               body.LoanEnd,
		Observations:          body.Observations,
	}
	for _, item := range body.Items {
		in.Items = append(in.Items, loan.ItemInput{
			AssignmentID: item.AssignmentID,
			Quantity:     item.Quantity,
			Description:  item.Description,
		})
	}

	req, err := h.loans.Create(r.Context(), c, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestView(req))
}

func (h *Handler) custodianSign(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body signBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.loans.CustodianSign(r.Context(), c, mux.Vars(r)["id"], body.Approve, body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) coordinatorSign(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body signBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.loans.CoordinatorSign(r.Context(), c, mux.Vars(r)["id"], body.Approve, body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) authorizeExit(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body noteBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.loans.AuthorizeExit(r.Context(), c, mux.Vars(r)["id"], body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) registerEntry(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body noteBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.loans.RegisterEntry(r.Context(), c, mux.Vars(r)["id"], body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body cancelBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.loans.Cancel(r.Context(), c, mux.Vars(r)["id"], body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.loans.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, limit := pageParams(r)

	// worklist=<role> 返回该角色的待办队列
	if role := r.URL.Query().Get("worklist"); role != "" {
		reqs, total, err := h.loans.ListPendingForRole(r.Context(), c, role, offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRequestList(w, reqs, total)
		return
	}

	f := loan.ListFilter{
		RequesterID: r.URL.Query().Get("requester_id"),
		Status:      loan.Status(r.URL.Query().Get("status")),
		Offset:      offset,
		Limit:       limit,
	}
	reqs, total, err := h.loans.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRequestList(w, reqs, total)
}

func writeRequestList(w http.ResponseWriter, reqs []loan.Request, total int64) {
	out := struct {
		Requests []requestView `json:"requests"`
		listMeta
	}{listMeta: listMeta{Total: total}}
	for i := range reqs {
		out.Requests = append(out.Requests, toRequestView(&reqs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
