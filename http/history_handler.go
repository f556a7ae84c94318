package http

import (
	"log/slog"
	"net/http"
	"time"

	"xirr-service/repository"
)

type HistoryHandler struct {
	repo   *repository.CalculationRepositoryMemory
	logger *slog.Logger
}

func NewHistoryHandler(repo *repository.CalculationRepositoryMemory, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, logger: logger}
}

type historyEntry struct {
	ResultView
	ComputedAt time.Time `json:"computed_at"`
}

// Recent returns the latest calculations, newest first.
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records := h.repo.Recent()
	out := make([]historyEntry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		id := rec.MemberID
		out = append(out, historyEntry{
			ResultView: newResultView(&id, rec.Result),
			ComputedAt: rec.ComputedAt,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}
