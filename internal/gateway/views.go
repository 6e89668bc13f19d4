package gateway

import (
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/loan"
)

// 响应视图：与 GORM 模型解耦，字段稳定、时间统一 RFC3339。

type requestView struct {
	ID                    string          `json:"id"`
	RequesterID           string          `json:"requester_id"`
	DestinationLocationID string          `json:"destination_location_id"`
	Purpose               string          `json:"purpose,omitempty"`
	Observations          string          `json:"observations,omitempty"`
	LoanStart             time.Time       `json:"loan_start"`
	LoanEnd               time.Time       `json:"loan_end"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
	Details               []detailView    `json:"details,omitempty"`
	Signatures            []signatureView `json:"signatures,omitempty"`
}

type detailView struct {
	ID           string `json:"id"`
	AssignmentID string `json:"assignment_id"`
	Quantity     int    `json:"quantity"`
	Description  string `json:"description,omitempty"`
}

type signatureView struct {
	ID          string    `json:"id"`
	Stage       string    `json:"stage"`
	SignerID    string    `json:"signer_id"`
	Approved    bool      `json:"approved"`
	Observation string    `json:"observation,omitempty"`
	SignedAt    time.Time `json:"signed_at"`
}

func toRequestView(r *loan.Request) requestView {
	v := requestView{
		ID:                    r.ID,
		RequesterID:           r.RequesterID,
		DestinationLocationID: r.DestinationLocationID,
		Purpose:               r.Purpose,
		Observations:          r.Observations,
		LoanStart:             r.LoanStart,
		LoanEnd:               r.LoanEnd,
		Status:                string(r.Status),
		CreatedAt:             r.CreatedAt,
	}
	for _, d := range r.Details {
		v.Details = append(v.Details, detailView{
			ID:           d.ID,
			AssignmentID: d.AssignmentID,
			Quantity:     d.Quantity,
			Description:  d.Description,
		})
	}
	for _, sig := range r.Signatures {
		v.Signatures = append(v.Signatures, signatureView{
			ID:          sig.ID,
			Stage:       string(sig.Stage),
			SignerID:    sig.SignerID,
			Approved:    sig.Approved,
			Observation: sig.Observation,
			SignedAt:    sig.SignedAt,
		})
	}
	return v
}

type assignmentView struct {
	ID          string    `json:"id"`
	AssetID     string    `json:"asset_id"`
	CustodianID string    `json:"custodian_id"`
	LocationID  string    `json:"location_id,omitempty"`
	AssignedAt  time.Time `json:"assigned_at"`
	Active      bool      `json:"active"`
	Locked      bool      `json:"locked"`
}

func toAssignmentView(a *custody.Assignment) assignmentView {
	return assignmentView{
		ID:          a.ID,
		AssetID:     a.AssetID,
		CustodianID: a.CustodianID,
		LocationID:  a.LocationID,
		AssignedAt:  a.AssignedAt,
		Active:      a.Active,
		Locked:      a.Locked,
	}
}

type assetView struct {
	ID                   string     `json:"id"`
	Code                 string     `json:"code"`
	Description          string     `json:"description"`
	BrandID              string     `json:"brand_id,omitempty"`
	Model                string     `json:"model,omitempty"`
	Serial               string     `json:"serial,omitempty"`
	AcquisitionCostCents int64      `json:"acquisition_cost_cents"`
	AcquiredAt           *time.Time `json:"acquired_at,omitempty"`
	ExpectedLifeYears    int        `json:"expected_life_years"`
	CustodianID          string     `json:"custodian_id,omitempty"`
	LocationID           string     `json:"location_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toAssetView(a *asset.Asset) assetView {
	return assetView{
		ID:                   a.ID,
		Code:                 a.Code,
		Description:          a.Description,
		BrandID:              a.BrandID,
		Model:                a.Model,
		Serial:               a.Serial,
		AcquisitionCostCents: a.AcquisitionCostCents,
		AcquiredAt:           a.AcquiredAt,
		ExpectedLifeYears:    a.ExpectedLifeYears,
		CustodianID:          a.CustodianID,
		LocationID:           a.LocationID,
		CreatedAt:            a.CreatedAt,
	}
}

type statusRecordView struct {
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toStatusRecordView(rec *asset.StatusRecord) statusRecordView {
	return statusRecordView{
		Status:     string(rec.Status),
		RecordedAt: rec.RecordedAt,
	}
}

type movementView struct {
	AssetID         string    `json:"asset_id"`
	AssignmentID    string    `json:"assignment_id,omitempty"`
	Kind            string    `json:"kind"`
	FromCustodianID string    `json:"from_custodian_id,omitempty"`
	ToCustodianID   string    `json:"to_custodian_id,omitempty"`
	FromLocationID  string    `json:"from_location_id,omitempty"`
	ToLocationID    string    `json:"to_location_id,omitempty"`
	ActorID         string    `json:"actor_id"`
	MovedAt         time.Time `json:"moved_at"`
}

func toMovementView(m *custody.MovementRecord) movementView {
	return movementView{
		AssetID:         m.AssetID,
		AssignmentID:    m.AssignmentID,
		Kind:            m.Kind,
		FromCustodianID: m.FromCustodianID,
		ToCustodianID:   m.ToCustodianID,
		FromLocationID:  m.FromLocationID,
		ToLocationID:    m.ToLocationID,
		ActorID:         m.ActorID,
		MovedAt:         m.MovedAt,
	}
}

// listMeta 分页元信息。
type listMeta struct {
	Total int64 `json:"total"`
}
