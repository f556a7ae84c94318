package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"xirr-service/domain"
)

// ResultView is the presentation of one XIRR result: either xirr/rate or
// error is set, never both.
type ResultView struct {
	MemberID *domain.MemberID `json:"member_id,omitempty"`
	XIRR     *string          `json:"xirr"`
	Rate     *float64         `json:"rate"`
	Error    *string          `json:"error"`
	Kind     domain.ErrorKind `json:"kind,omitempty"`
}

func newResultView(id *domain.MemberID, r domain.XirrResult) ResultView {
	view := ResultView{MemberID: id}
	if r.IsSolved() {
		formatted := r.Percent().String()
		rate := r.Rate
		view.XIRR = &formatted
		view.Rate = &rate
		return view
	}
	reason := r.Reason()
	view.Error = &reason
	view.Kind = r.Kind
	return view
}

// BatchView is the calculate-all response.
type BatchView struct {
	RunID   string       `json:"run_id"`
	Results []ResultView `json:"results"`
}

func newBatchView(b domain.BatchResult) BatchView {
	view := BatchView{
		RunID:   b.RunID.String(),
		Results: make([]ResultView, 0, len(b.Entries)),
	}
	for _, e := range b.Entries {
		id := e.MemberID
		view.Results = append(view.Results, newResultView(&id, e.Result))
	}
	return view
}

// writeJSON encodes into a buffer first so a failed encode never leaves a
// half-written 200.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("write response", "error", err)
	}
}
