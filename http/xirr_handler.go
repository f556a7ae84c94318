package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"xirr-service/domain"
	"xirr-service/service"
)

const maxBodyBytes = 1 << 20

type XirrHandler struct {
	service *service.XirrService
	logger  *slog.Logger
}

func NewXirrHandler(service *service.XirrService, logger *slog.Logger) *XirrHandler {
	return &XirrHandler{service: service, logger: logger}
}

// Members lists the member ids that have cashflows.
func (h *XirrHandler) Members(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids, err := h.service.Members(r.Context())
	if err != nil {
		h.logger.Error("list members", "error", err)
		http.Error(w, "cashflow store unavailable", http.StatusServiceUnavailable)
		return
	}
	if ids == nil {
		ids = []domain.MemberID{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"member_ids": ids})
}

type calculateRequest struct {
	MemberID *domain.MemberID `json:"member_id"`
}

// Calculate computes the XIRR of one stored member. The member id comes
// from a JSON body or a form field named member_id.
func (h *XirrHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := h.memberID(w, r)
	if err != nil {
		h.logger.Info("bad calculate request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.service.CalculateMember(r.Context(), id)
	writeJSON(w, h.logger, http.StatusOK, newResultView(&id, result))
}

func (h *XirrHandler) memberID(w http.ResponseWriter, r *http.Request) (domain.MemberID, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if mediaType == "application/json" {
		var req calculateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return 0, errors.New("invalid request body")
		}
		if req.MemberID == nil {
			return 0, errors.New("member_id is required")
		}
		return *req.MemberID, nil
	}

	if err := r.ParseForm(); err != nil {
		return 0, errors.New("invalid request body")
	}
	raw := strings.TrimSpace(r.PostForm.Get("member_id"))
	if raw == "" {
		return 0, errors.New("member_id is required")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("member_id must be an integer")
	}
	return domain.MemberID(n), nil
}

// CalculateAll computes every member in the store.
func (h *XirrHandler) CalculateAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batch, err := h.service.CalculateAll(r.Context())
	if err != nil {
		h.logger.Error("calculate all", "error", err)
		http.Error(w, "cashflow store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newBatchView(batch))
}

type cashflowInput struct {
	Amount any `json:"amount"`
	Date   any `json:"date"`
}

type computeRequest struct {
	Cashflows []cashflowInput `json:"cashflows"`
}

// Compute calculates the XIRR of cashflows sent in the request body,
// without touching the store.
func (h *XirrHandler) Compute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Validar Content-Type
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var req computeRequest
	if err := dec.Decode(&req); err != nil {
		h.logger.Info("decode compute body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	records := make([]domain.RawRecord, len(req.Cashflows))
	for i, c := range req.Cashflows {
		records[i] = domain.RawRecord{Amount: c.Amount, Date: c.Date}
	}

	writeJSON(w, h.logger, http.StatusOK, newResultView(nil, service.Compute(records)))
}

// Health pings the cashflow store.
func (h *XirrHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
