package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"voyage-backoffice/internal/audit"
	billingapp "voyage-backoffice/internal/billing/application"
	billing "voyage-backoffice/internal/billing/domain"
	"voyage-backoffice/internal/billing/interfaces"
	"voyage-backoffice/internal/observability/metrics"
)

// Handler provides invoice settlement and supplier balance endpoints.
type Handler struct {
	settlements *billingapp.SettlementService
	reconciler  *billingapp.Reconciler
	batcher     *billingapp.BatchService
	currency    string
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(
	settlements *billingapp.SettlementService,
	reconciler *billingapp.Reconciler,
	batcher *billingapp.BatchService,
	currency string,
	auditLogger audit.Logger,
) (*Handler, error) {
	if settlements == nil {
		return nil, errors.New("billing handler: nil settlement service")
	}
	if reconciler == nil {
		return nil, errors.New("billing handler: nil reconciler")
	}
	if batcher == nil {
		return nil, errors.New("billing handler: nil batch service")
	}
	return &Handler{
		settlements: settlements,
		reconciler:  reconciler,
		batcher:     batcher,
		currency:    currency,
		auditLogger: auditLogger,
	}, nil
}

// ServeHTTP routes under /api/v1/invoices and /api/v1/suppliers.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/invoices/"):
		h.handleInvoice(w, r, strings.TrimPrefix(path, "/api/v1/invoices/"))
	case path == "/api/v1/suppliers/balances" && r.Method == http.MethodGet:
		h.handleAllBalances(w, r)
	case path == "/api/v1/suppliers/balances/export" && r.Method == http.MethodGet:
		h.handleExport(w, r)
	case strings.HasPrefix(path, "/api/v1/suppliers/"):
		h.handleSupplier(w, r, strings.TrimPrefix(path, "/api/v1/suppliers/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request, rest string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(rest, "/settle"):
		h.handleSettle(w, r, strings.TrimSuffix(rest, "/settle"))
	case strings.HasSuffix(rest, "/refund"):
		h.handleRefund(w, r, strings.TrimSuffix(rest, "/refund"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request, invoiceID string) {
	var req struct {
		Amount     string `json:"amount"`
		Mode       string `json:"mode"`
		CashMethod string `json:"cash_method,omitempty"`
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
	result, err := h.settlements.Settle(r.Context(), invoiceID, amount, billingapp.SettleMode(req.Mode), req.CashMethod)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"invoice_id":       result.Invoice.ID,
		"status":           string(result.Invoice.Status),
		"amount_paid":      result.Invoice.AmountPaid.String(),
		"paid_from_credit": result.PaidFromCredit.String(),
		"paid_from_cash":   result.PaidFromCash.String(),
		"supplier_credit":  result.Supplier.CurrentCredit.String(),
		"supplier_debt":    result.Supplier.CurrentDebt.String(),
	}
	if result.LedgerEntry != nil {
		resp["ledger_entry_id"] = result.LedgerEntry.ID
	}
	writeJSON(w, resp)
	meta, _ := json.Marshal(map[string]any{"mode": req.Mode, "amount": req.Amount})
	h.logAudit(r, "invoice.settle", "invoice", invoiceID, result.Supplier.ID, meta)
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request, invoiceID string) {
	var req struct {
		Amount     string `json:"amount"`
		FromCredit bool   `json:"from_credit,omitempty"`
		CashMethod string `json:"cash_method,omitempty"`
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
	result, err := h.settlements.Refund(r.Context(), invoiceID, amount, req.FromCredit, req.CashMethod)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"invoice_id":  result.Invoice.ID,
		"status":      string(result.Invoice.Status),
		"amount_paid": result.Invoice.AmountPaid.String(),
	})
	meta, _ := json.Marshal(map[string]any{"amount": req.Amount, "from_credit": req.FromCredit})
	h.logAudit(r, "invoice.refund", "invoice", invoiceID, result.Supplier.ID, meta)
}

func (h *Handler) handleSupplier(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	supplierID, action := parts[0], parts[1]
	switch {
	case action == "balance" && r.Method == http.MethodGet:
		detail, err := h.reconciler.ReconcileOne(r.Context(), supplierID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, balanceToJSON(detail))
	case action == "balance/refresh" && r.Method == http.MethodPost:
		detail, err := h.reconciler.RefreshCached(r.Context(), supplierID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, balanceToJSON(detail))
		h.logAudit(r, "supplier.refresh_balance", "supplier", supplierID, supplierID, nil)
	case action == "invoices/batch" && r.Method == http.MethodPost:
		var req struct {
			Number string `json:"number,omitempty"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		invoice, err := h.batcher.BuildSupplierInvoice(r.Context(), supplierID, req.Number)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{
			"invoice_id":  invoice.ID,
			"number":      invoice.Number,
			"gross_total": invoice.GrossTotal.String(),
			"status":      string(invoice.Status),
			"tickets":     len(invoice.TicketIDs),
		})
		h.logAudit(r, "invoice.batch", "invoice", invoice.ID, supplierID, nil)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAllBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(balances))
	for _, b := range balances {
		entry := balanceToJSON(b.Detail)
		entry["supplier_id"] = b.Supplier.ID
		entry["supplier_name"] = b.Supplier.Name
		out = append(out, entry)
	}
	writeJSON(w, out)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	balances, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		metrics.IncExport(metrics.ResultError)
		respondServiceError(w, err)
		return
	}
	data, err := interfaces.BuildBalanceReportXLSX(balances, h.currency)
	if err != nil {
		metrics.IncExport(metrics.ResultError)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.IncExport(metrics.ResultSuccess)
	filename := fmt.Sprintf("supplier-balances-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

func balanceToJSON(detail billing.BalanceDetail) map[string]any {
	return map[string]any{
		"current_debt":             detail.CurrentDebt.String(),
		"current_credit":           detail.CurrentCredit.String(),
		"total_invoiced":           detail.TotalInvoiced.String(),
		"total_manual_settlements": detail.TotalManualSettlements.String(),
		"total_credit_settlements": detail.TotalCreditSettlements.String(),
		"invoice_count":            detail.InvoiceCount,
	}
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID, supplierID string, metadata []byte) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		SupplierID:   supplierID,
		Metadata:     metadata,
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
	case errors.Is(err, billing.ErrSupplierNotFound), errors.Is(err, billing.ErrInvoiceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrOverpaymentRejected),
		errors.Is(err, billing.ErrInsufficientCredit),
		errors.Is(err, billing.ErrRefundExceedsPaid),
		errors.Is(err, billing.ErrInvoiceNotSettleable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, billing.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
