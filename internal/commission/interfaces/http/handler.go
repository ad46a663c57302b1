package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"voyage-backoffice/internal/audit"
	commissionapp "voyage-backoffice/internal/commission/application"
	commission "voyage-backoffice/internal/commission/domain"
)

// Handler provides commission HTTP endpoints: preview, ticket
// recompute/clear, and supplier rule editing.
type Handler struct {
	service     *commissionapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *commissionapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("commission handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes under /api/v1/commission, /api/v1/tickets and
// /api/v1/suppliers/{id}/rules.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/commission/preview" && r.Method == http.MethodPost:
		h.handlePreview(w, r)
	case strings.HasPrefix(path, "/api/v1/tickets/"):
		h.handleTicket(w, r, strings.TrimPrefix(path, "/api/v1/tickets/"))
	case strings.HasPrefix(path, "/api/v1/suppliers/"):
		h.handleSupplier(w, r, strings.TrimPrefix(path, "/api/v1/suppliers/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type ruleDTO struct {
	ID            string `json:"id,omitempty"`
	Carrier       string `json:"carrier"`
	PassengerType string `json:"passenger_type"`
	FlightType    string `json:"flight_type"`
	CabinClass    string `json:"cabin_class"`
	Mode          string `json:"mode"`
	Value         string `json:"value"`
	Base          string `json:"base,omitempty"`
}

func (d ruleDTO) toDomain(supplierID string) (commission.Rule, error) {
	value, err := decimal.NewFromString(d.Value)
	if err != nil {
		return commission.Rule{}, errors.New("invalid rule value")
	}
	return commission.Rule{
		ID:            d.ID,
		SupplierID:    supplierID,
		Carrier:       d.Carrier,
		PassengerType: d.PassengerType,
		FlightType:    d.FlightType,
		CabinClass:    d.CabinClass,
		Mode:          commission.RuleMode(d.Mode),
		Value:         value,
		Base:          commission.RuleBase(d.Base),
	}, nil
}

func ruleToDTO(r commission.Rule) ruleDTO {
	return ruleDTO{
		ID:            r.ID,
		Carrier:       r.Carrier,
		PassengerType: r.PassengerType,
		FlightType:    r.FlightType,
		CabinClass:    r.CabinClass,
		Mode:          string(r.Mode),
		Value:         r.Value.String(),
		Base:          string(r.Base),
	}
}

func resultToJSON(res commission.Result) map[string]any {
	out := map[string]any{
		"commission":          res.Commission.String(),
		"net_supplier_amount": res.NetSupplierAmount.String(),
		"reason":              res.Reason,
		"computed_at":         res.ComputedAt,
	}
	if res.AppliedRuleID != "" {
		out["applied_rule_id"] = res.AppliedRuleID
	}
	return out
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SupplierID    string `json:"supplier_id"`
		Carrier       string `json:"carrier"`
		PassengerType string `json:"passenger_type"`
		FlightType    string `json:"flight_type"`
		CabinClass    string `json:"cabin_class"`
		GrossHT       string `json:"gross_ht"`
		GrossTTC      string `json:"gross_ttc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	grossHT, err := decimal.NewFromString(req.GrossHT)
	if err != nil {
		http.Error(w, "invalid gross_ht", http.StatusBadRequest)
		return
	}
	grossTTC, err := decimal.NewFromString(req.GrossTTC)
	if err != nil {
		http.Error(w, "invalid gross_ttc", http.StatusBadRequest)
		return
	}
	out, err := h.service.Preview(r.Context(), req.SupplierID, commissionapp.PreviewInput{
		Attrs: commission.TicketAttributes{
			Carrier:       req.Carrier,
			PassengerType: req.PassengerType,
			FlightType:    req.FlightType,
			CabinClass:    req.CabinClass,
		},
		GrossHT:  grossHT,
		GrossTTC: grossTTC,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := resultToJSON(out.Result)
	if out.MatchedRule != nil {
		resp["matched_rule"] = ruleToDTO(*out.MatchedRule)
	}
	writeJSON(w, resp)
}

func (h *Handler) handleTicket(w http.ResponseWriter, r *http.Request, rest string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(rest, "/recompute"):
		ticketID := strings.TrimSuffix(rest, "/recompute")
		result, err := h.service.Recompute(r.Context(), ticketID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, resultToJSON(result))
		h.logAudit(r, "ticket.recompute", "ticket", ticketID, nil)
	case strings.HasSuffix(rest, "/clear-commission"):
		ticketID := strings.TrimSuffix(rest, "/clear-commission")
		result, err := h.service.ClearCommission(r.Context(), ticketID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, resultToJSON(result))
		h.logAudit(r, "ticket.clear_commission", "ticket", ticketID, nil)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSupplier(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	supplierID, action := parts[0], parts[1]
	switch {
	case action == "rules" && r.Method == http.MethodGet:
		rules, err := h.service.ListRules(r.Context(), supplierID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		dtos := make([]ruleDTO, 0, len(rules))
		for _, rule := range rules {
			dtos = append(dtos, ruleToDTO(rule))
		}
		writeJSON(w, dtos)
	case action == "rules" && r.Method == http.MethodPost:
		h.handleAddRule(w, r, supplierID)
	case action == "rules/validate" && r.Method == http.MethodGet:
		shadowed, err := h.service.UnreachableRules(r.Context(), supplierID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		dtos := make([]ruleDTO, 0, len(shadowed))
		for _, rule := range shadowed {
			dtos = append(dtos, ruleToDTO(rule))
		}
		writeJSON(w, map[string]any{"unreachable_rules": dtos})
	case action == "recompute" && r.Method == http.MethodPost:
		count, err := h.service.RecomputeSupplierTickets(r.Context(), supplierID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"recomputed": count})
		h.logAudit(r, "supplier.recompute_tickets", "supplier", supplierID, nil)
	case strings.HasPrefix(action, "rules/") && r.Method == http.MethodDelete:
		ruleID := strings.TrimPrefix(action, "rules/")
		if err := h.service.RemoveRule(r.Context(), supplierID, ruleID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		h.logAudit(r, "rule.remove", "rule", ruleID, nil)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAddRule(w http.ResponseWriter, r *http.Request, supplierID string) {
	var req struct {
		ruleDTO
		Position       *int `json:"position,omitempty"`
		UpdateExisting bool `json:"update_existing,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	rule, err := req.toDomain(supplierID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var saved commission.Rule
	if req.Position != nil {
		saved, err = h.service.InsertRuleAt(r.Context(), rule, *req.Position)
	} else {
		saved, err = h.service.AddRule(r.Context(), rule, req.UpdateExisting)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, ruleToDTO(saved))
	meta, _ := json.Marshal(map[string]any{"update_existing": req.UpdateExisting})
	h.logAudit(r, "rule.add", "rule", saved.ID, meta)
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID string, metadata []byte) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
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
	case errors.Is(err, commission.ErrTicketNotFound), errors.Is(err, commission.ErrRuleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, commission.ErrAmbiguousRuleEdit):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, commission.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
