package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"xirr-service/domain"
	"xirr-service/repository"
	"xirr-service/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestHandler(t *testing.T) (*XirrHandler, *repository.CalculationRepositoryMemory) {
	t.Helper()

	store := repository.NewCashflowRepositoryMemory()
	store.Add(1,
		domain.RawRecord{Amount: -1000.0, Date: "2023-01-01"},
		domain.RawRecord{Amount: 600.0, Date: "2023-07-01"},
		domain.RawRecord{Amount: 600.0, Date: "2024-01-01"},
	)
	store.Add(2,
		domain.RawRecord{Amount: 100.0, Date: "2023-01-01"},
		domain.RawRecord{Amount: 200.0, Date: "2023-06-01"},
	)

	calcLog := repository.NewCalculationRepositoryMemory(10)
	svc := service.NewXirrService(store, repository.NewMemoryCache(), calcLog, service.WithLogger(discard))
	return NewXirrHandler(svc, discard), calcLog
}

func decodeView(t *testing.T, body *bytes.Buffer) ResultView {
	t.Helper()
	var view ResultView
	if err := json.NewDecoder(body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return view
}

func TestCalculateHandler_JSON(t *testing.T) {
	handler, calcLog := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/xirr/calculate", strings.NewReader(`{"member_id": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Calculate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	view := decodeView(t, w.Body)
	if view.XIRR == nil || *view.XIRR != "27.93%" {
		t.Fatalf("expected xirr 27.93%%, got %+v", view)
	}
	if view.MemberID == nil || *view.MemberID != 1 {
		t.Errorf("expected member_id 1, got %v", view.MemberID)
	}
	if view.Error != nil {
		t.Errorf("solved result must not carry an error: %q", *view.Error)
	}
	if len(calcLog.Recent()) != 1 {
		t.Errorf("expected calculation to be recorded")
	}
}

func TestCalculateHandler_Form(t *testing.T) {
	handler, _ := newTestHandler(t)

	form := url.Values{"member_id": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/xirr/calculate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Calculate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	view := decodeView(t, w.Body)
	if view.Error == nil || view.Kind != domain.KindNoSignVariation {
		t.Fatalf("expected no sign variation error, got %+v", view)
	}
	if view.XIRR != nil {
		t.Errorf("invalid result must not carry a rate")
	}
}

func TestCalculateHandler_UnknownMember(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/xirr/calculate", strings.NewReader(`{"member_id": 99}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Calculate(w, req)

	view := decodeView(t, w.Body)
	if view.Kind != domain.KindInsufficientData {
		t.Errorf("expected %s, got %s", domain.KindInsufficientData, view.Kind)
	}
}

func TestCalculateHandler_BadRequest(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"invalid json", "application/json", `{invalid-json}`},
		{"missing json id", "application/json", `{}`},
		{"missing form id", "application/x-www-form-urlencoded", ``},
		{"non numeric form id", "application/x-www-form-urlencoded", `member_id=abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/xirr/calculate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.Calculate(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCalculateHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/xirr/calculate", nil)
	w := httptest.NewRecorder()

	handler.Calculate(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestMembersHandler(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	w := httptest.NewRecorder()

	handler.Members(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		MemberIDs []domain.MemberID `json:"member_ids"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.MemberIDs) != 2 || body.MemberIDs[0] != 1 || body.MemberIDs[1] != 2 {
		t.Errorf("unexpected member ids %v", body.MemberIDs)
	}
}

func TestCalculateAllHandler(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/xirr/calculate-all", nil)
	w := httptest.NewRecorder()

	handler.CalculateAll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var batch BatchView
	if err := json.NewDecoder(w.Body).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.RunID == "" {
		t.Error("expected run id")
	}
	if len(batch.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(batch.Results))
	}
	if batch.Results[0].XIRR == nil || *batch.Results[0].XIRR != "27.93%" {
		t.Errorf("member 1: unexpected %+v", batch.Results[0])
	}
	if batch.Results[1].Kind != domain.KindNoSignVariation {
		t.Errorf("member 2: unexpected %+v", batch.Results[1])
	}
}

type brokenStore struct{ repository.CashflowRepository }

var errStoreDown = errors.New("store down")

func (brokenStore) MemberIDs(context.Context) ([]domain.MemberID, error) { return nil, errStoreDown }
func (brokenStore) Ping(context.Context) error                           { return errStoreDown }

func TestHandlers_StoreUnavailable(t *testing.T) {
	svc := service.NewXirrService(brokenStore{}, nil, nil, service.WithLogger(discard))
	handler := NewXirrHandler(svc, discard)

	tests := []struct {
		name string
		call func(http.ResponseWriter, *http.Request)
	}{
		{"members", handler.Members},
		{"calculate all", handler.CalculateAll},
		{"health", handler.Health},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.call(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("expected 503, got %d", w.Code)
			}
		})
	}
}

func TestComputeHandler(t *testing.T) {
	handler, calcLog := newTestHandler(t)

	body := `{"cashflows": [
		{"amount": -1000, "date": "2023-01-01"},
		{"amount": "600", "date": "2023-07-01"},
		{"amount": 600.00, "date": "2024-01-01"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/xirr/compute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Compute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	view := decodeView(t, w.Body)
	if view.XIRR == nil || *view.XIRR != "27.93%" {
		t.Errorf("expected 27.93%%, got %+v", view)
	}
	if view.MemberID != nil {
		t.Errorf("ad-hoc compute must not report a member id")
	}
	if len(calcLog.Recent()) != 0 {
		t.Errorf("ad-hoc compute must not be recorded")
	}
}

func TestComputeHandler_InvalidData(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := `{"cashflows": [{"amount": "abc", "date": "2023-01-01"}, {"amount": 5, "date": "2023-02-01"}]}`
	req := httptest.NewRequest(http.MethodPost, "/xirr/compute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Compute(w, req)

	view := decodeView(t, w.Body)
	if view.Kind != domain.KindDataConversion {
		t.Errorf("expected %s, got %+v", domain.KindDataConversion, view)
	}
	if view.Error == nil || !strings.HasPrefix(*view.Error, "Data Error: ") {
		t.Errorf("unexpected error message %v", view.Error)
	}
}

func TestComputeHandler_Rejections(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"wrong method", http.MethodGet, "application/json", ``, http.StatusMethodNotAllowed},
		{"not json", http.MethodPost, "text/plain", `x`, http.StatusUnsupportedMediaType},
		{"broken json", http.MethodPost, "application/json", `{"cashflows": [`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/xirr/compute", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.Compute(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestHealthHandler_OK(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestHistoryHandler_NewestFirst(t *testing.T) {
	handler, calcLog := newTestHandler(t)

	for _, id := range []string{"1", "2"} {
		req := httptest.NewRequest(http.MethodPost, "/xirr/calculate", strings.NewReader("member_id="+id))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		handler.Calculate(httptest.NewRecorder(), req)
	}

	history := NewHistoryHandler(calcLog, discard)
	w := httptest.NewRecorder()
	history.Recent(w, httptest.NewRequest(http.MethodGet, "/xirr/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []historyEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if *entries[0].MemberID != 2 || *entries[1].MemberID != 1 {
		t.Errorf("expected newest first, got %d then %d", *entries[0].MemberID, *entries[1].MemberID)
	}
	if entries[0].ComputedAt.IsZero() {
		t.Error("expected computed_at")
	}
}
