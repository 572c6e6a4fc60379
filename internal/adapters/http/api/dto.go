package api

import (
	"encoding/json"

	"github.com/okian/recap/internal/domain/model"
)

// RowResponse is one ranked row on the wire.
type RowResponse struct {
	Rank           string      `json:"rank"`
	Index          int         `json:"index"`
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Role           string      `json:"role"`
	Units          json.Number `json:"units"`
	UnitsDisplay   string      `json:"unitsDisplay"`
	TopTier        bool        `json:"topTier"`
	Nonnegative    bool        `json:"nonnegative"`
	PendingRemoval bool        `json:"pendingRemoval"`
}

// ViewResponse is the ranked view with the reporting period.
type ViewResponse struct {
	State         string        `json:"state"`
	Rows          []RowResponse `json:"rows"`
	Total         json.Number   `json:"total"`
	TotalDisplay  string        `json:"totalDisplay"`
	TotalNegative bool          `json:"totalNegative"`
	Version       uint64        `json:"version"`
	StartDate     string        `json:"startDate"`
	EndDate       string        `json:"endDate"`
}

// EntryResponse is the entry a mutation created or targeted.
type EntryResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Role  string      `json:"role"`
	Units json.Number `json:"units"`
}

// MutationResponse acknowledges an intent.
type MutationResponse struct {
	Status    string         `json:"status"`
	Duplicate bool           `json:"duplicate"`
	Entry     *EntryResponse `json:"entry,omitempty"`
	View      ViewResponse   `json:"view"`
}

// CommitRequest is the body of a field commit.
type CommitRequest struct {
	Field string  `json:"field" validate:"required,oneof=name role units"`
	Value *string `json:"value" validate:"required"`
}

// NewViewResponse converts a published view.
func NewViewResponse(v model.View, startDate, endDate string) ViewResponse { //nolint:gocritic // hugeParam
	rows := make([]RowResponse, 0, len(v.Rows))
	for _, r := range v.Rows {
		rows = append(rows, RowResponse{
			Rank:           r.Rank,
			Index:          r.Index,
			ID:             r.ID,
			Name:           r.Name,
			Role:           r.Role,
			Units:          json.Number(r.Units.String()),
			UnitsDisplay:   r.UnitsDisplay,
			TopTier:        r.TopTier,
			Nonnegative:    r.Nonnegative,
			PendingRemoval: r.PendingRemoval,
		})
	}
	return ViewResponse{
		State:         string(v.State()),
		Rows:          rows,
		Total:         json.Number(v.Total.String()),
		TotalDisplay:  v.TotalDisplay,
		TotalNegative: v.TotalNegative,
		Version:       v.Version,
		StartDate:     startDate,
		EndDate:       endDate,
	}
}

func newEntryResponse(e model.Entry) *EntryResponse {
	if e.ID == "" {
		return nil
	}
	return &EntryResponse{ID: e.ID, Name: e.Name, Role: e.Role, Units: json.Number(e.Units.String())}
}
