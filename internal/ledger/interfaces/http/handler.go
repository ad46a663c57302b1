package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"voyage-backoffice/internal/audit"
	ledgerapp "voyage-backoffice/internal/ledger/application"
	ledger "voyage-backoffice/internal/ledger/domain"
)

// Handler exposes the cash register over HTTP.
type Handler struct {
	recorder    *ledgerapp.Recorder
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(recorder *ledgerapp.Recorder, auditLogger audit.Logger) (*Handler, error) {
	if recorder == nil {
		return nil, errors.New("ledger handler: nil recorder")
	}
	return &Handler{recorder: recorder, auditLogger: auditLogger}, nil
}

// ServeHTTP routes under /api/v1/ledger.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/ledger")
	switch {
	case path == "/entries" && r.Method == http.MethodPost:
		h.handleAppend(w, r)
	case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/entries/"), "/cancel")
		h.handleCancel(w, r, id)
	case path == "/balance" && r.Method == http.MethodGet:
		h.handleBalance(w, r)
	case path == "/report" && r.Method == http.MethodGet:
		h.handleReport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction  string `json:"direction"`
		Amount     string `json:"amount"`
		Category   string `json:"category"`
		InvoiceID  string `json:"invoice_id,omitempty"`
		SupplierID string `json:"supplier_id,omitempty"`
		ClientID   string `json:"client_id,omitempty"`
		Note       string `json:"note,omitempty"`
		Date       string `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	var date time.Time
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
	}
	entry, err := ledger.NewEntry(ledger.Direction(req.Direction), amount, req.Category, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	entry.InvoiceID = req.InvoiceID
	entry.SupplierID = req.SupplierID
	entry.ClientID = req.ClientID
	entry.Note = req.Note

	saved, err := h.recorder.Append(r.Context(), entry)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, entryToJSON(saved))
	h.logAudit(r, "ledger.append", saved.ID, saved.SupplierID)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request, entryID string) {
	counterpart, err := h.recorder.Cancel(r.Context(), entryID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"cancelled_entry_id": entryID,
		"counterpart":        entryToJSON(counterpart),
	})
	h.logAudit(r, "ledger.cancel", entryID, counterpart.SupplierID)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	balance, err := h.recorder.Balance(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"balance": balance.String()})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report, err := h.recorder.BuildReport(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	totals := make(map[string]string, len(report.CategoryTotals))
	for category, total := range report.CategoryTotals {
		totals[category] = total.String()
	}
	writeJSON(w, map[string]any{
		"balance":         report.Balance.String(),
		"category_totals": totals,
		"entry_count":     report.EntryCount,
	})
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date")
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date")
		}
	}
	return from, to, nil
}

func entryToJSON(entry *ledger.Entry) map[string]any {
	out := map[string]any{
		"id":        entry.ID,
		"direction": string(entry.Direction),
		"amount":    entry.Amount.String(),
		"category":  entry.Category,
		"status":    string(entry.Status),
		"date":      entry.Date.Format("2006-01-02"),
	}
	if entry.InvoiceID != "" {
		out["invoice_id"] = entry.InvoiceID
	}
	if entry.SupplierID != "" {
		out["supplier_id"] = entry.SupplierID
	}
	if entry.ClientID != "" {
		out["client_id"] = entry.ClientID
	}
	if entry.Note != "" {
		out["note"] = entry.Note
	}
	if entry.CancellationOf != "" {
		out["cancellation_of"] = entry.CancellationOf
	}
	return out
}

func (h *Handler) logAudit(r *http.Request, action, entryID, supplierID string) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Action:       action,
		ResourceType: "ledger_entry",
		ResourceID:   entryID,
		SupplierID:   supplierID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyCancelled), errors.Is(err, ledger.ErrCancellationEntry):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
