package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/gigfin-service/internal/engine"
	"github.com/Dan9191/gigfin-service/internal/integrations/platform"
	"github.com/Dan9191/gigfin-service/internal/integrations/textgen"
	"github.com/Dan9191/gigfin-service/internal/middleware"
	"github.com/Dan9191/gigfin-service/internal/models"
	"github.com/Dan9191/gigfin-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler translates HTTP requests into service calls. All amounts on the
// wire are integer paise.
type Handler struct {
	svc     *service.Service
	textgen *textgen.Client
	log     *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(svc *service.Service, tg *textgen.Client, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, textgen: tg, log: log}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. The
// insufficient-funds warning keeps its remediation hint so callers know to
// resubmit with force=true.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *engine.ValidationError
	var fundsErr *engine.InsufficientFundsError
	var guardErr *engine.GuardrailError
	switch {
	case errors.As(err, &vErr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Msg})
	case errors.As(err, &fundsErr):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"warning":         true,
			"error":           "insufficient funds",
			"total_available": fundsErr.TotalAvailable,
			"shortfall":       fundsErr.Shortfall,
			"hint":            "resubmit with force=true to record anyway",
		})
	case errors.As(err, &guardErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "advance rejected",
			"reason": guardErr.Reason,
		})
	case strings.Contains(err.Error(), "not found"):
		h.writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		h.log.Errorf("Request failed: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

// userID extracts the authenticated user id injected by the auth middleware.
func (h *Handler) userID(r *http.Request) (int64, bool) {
	raw, ok := r.Context().Value(middleware.ContextUserID).(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.userID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	user, err := h.svc.Register(req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateDefaultBuckets seeds the standard bucket set at onboarding.
func (h *Handler) CreateDefaultBuckets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		MonthlyRent int64 `json:"monthly_rent"`
		HasEMI      bool  `json:"has_emi"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	buckets, err := h.svc.CreateDefaultBuckets(userID, req.MonthlyRent, req.HasEMI)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"buckets": buckets})
}

// GetState returns buckets, safe-to-spend, and outstanding advances.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	buckets, err := h.svc.GetBuckets(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	advances, err := h.svc.ListAdvances(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	safeToSpend, err := h.svc.SafeToSpend(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var total int64
	for _, b := range buckets {
		total += b.CurrentBalance
	}
	outstanding := make([]*models.Advance, 0)
	for _, a := range advances {
		if a.Status != models.AdvanceRepaid {
			outstanding = append(outstanding, a)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"buckets":       buckets,
		"total_balance": total,
		"safe_to_spend": safeToSpend,
		"advances":      outstanding,
	})
}

// AllocateIncome records an income event and distributes it.
func (h *Handler) AllocateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount   int64  `json:"amount"`
		Source   string `json:"source"`
		EarnedAt string `json:"earned_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var earnedAt time.Time
	if req.EarnedAt != "" {
		t, err := time.Parse(time.RFC3339, req.EarnedAt)
		if err != nil {
			http.Error(w, "earned_at must be RFC3339", http.StatusBadRequest)
			return
		}
		earnedAt = t
	}
	result, err := h.svc.AllocateIncome(userID, req.Amount, req.Source, earnedAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ImportStatement parses an XML earnings statement and allocates each entry.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	entries, err := platform.ParseStatement(raw)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	events := make([]models.IncomeEvent, len(entries))
	for i, e := range entries {
		events[i] = models.IncomeEvent{Amount: e.Amount, Source: e.Source, EarnedAt: e.EarnedAt}
	}
	imported, err := h.svc.ImportIncome(userID, events)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

// RecordExpense deducts an expense through the bucket cascade.
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount        int64  `json:"amount"`
		Category      string `json:"category"`
		PrimaryBucket string `json:"primary_bucket,omitempty"`
		Force         bool   `json:"force,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RecordExpense(userID, req.Amount, req.Category, req.PrimaryBucket, req.Force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// GetForecast projects the rolling balance timeline.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	horizon := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "days must be an integer", http.StatusBadRequest)
			return
		}
		horizon = n
	}
	forecast, err := h.svc.GetForecast(userID, horizon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, forecast)
}

// GetRisk returns the composite risk score with factors.
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	risk, err := h.svc.GetRisk(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, risk)
}

// AdvanceEligibility reports the current guardrail headroom.
func (h *Handler) AdvanceEligibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	elig, err := h.svc.AdvanceEligibility(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, elig)
}

// RequestAdvance issues an advance under guardrails.
func (h *Handler) RequestAdvance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	adv, err := h.svc.RequestAdvance(userID, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, adv)
}

// RepayAdvance settles an outstanding advance via the expense cascade.
func (h *Handler) RepayAdvance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	adv, err := h.svc.RepayAdvance(userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, adv)
}

// ListAdvances returns the user's advance history with derived statuses.
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	advances, err := h.svc.ListAdvances(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"advances": advances})
}

// CreateObligation registers a scheduled outflow.
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name         string `json:"name"`
		Amount       int64  `json:"amount"`
		DueDate      string `json:"due_date"`
		Recurrence   string `json:"recurrence"`
		LinkedBucket string `json:"linked_bucket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		http.Error(w, "due_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	o, err := h.svc.CreateObligation(&models.Obligation{
		UserID:       userID,
		Name:         req.Name,
		Amount:       req.Amount,
		DueDate:      dueDate,
		Recurrence:   req.Recurrence,
		LinkedBucket: req.LinkedBucket,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, o)
}

// ListObligations returns the user's active obligations.
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	obligations, err := h.svc.ListObligations(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"obligations": obligations})
}

// DeleteObligation removes an obligation.
func (h *Handler) DeleteObligation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	obligationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid obligation id", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteObligation(userID, obligationID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// MarkObligationPaid advances the due date by the recurrence rule.
func (h *Handler) MarkObligationPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	obligationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid obligation id", http.StatusBadRequest)
		return
	}
	o, err := h.svc.MarkObligationPaid(userID, obligationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

// GetInsights narrates the current forecast and risk via the external
// text-generation collaborator. Engine results pass through unchanged; only
// the message text comes from the collaborator.
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	forecast, err := h.svc.GetForecast(userID, 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	risk, err := h.svc.GetRisk(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	shortfallDays := 0
	firstShortfall := ""
	for _, d := range forecast.Daily {
		if d.Status == models.DayShortfall {
			if firstShortfall == "" {
				firstShortfall = d.Date
			}
			shortfallDays++
		}
	}
	message, err := h.textgen.GenerateMessage(map[string]any{
		"risk_score":      risk.Score,
		"risk_level":      risk.Level,
		"shortfall_days":  shortfallDays,
		"first_shortfall": firstShortfall,
		"horizon_days":    forecast.HorizonDays,
		"weekly_income":   forecast.Stats.WeeklyAverage,
		"low_confidence":  forecast.LowConfidence,
	})
	if err != nil {
		// The narration layer is best-effort; the numbers still go out.
		h.log.Errorf("textgen unavailable: %v", err)
		message = ""
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":  message,
		"risk":     risk,
		"forecast": forecast,
	})
}
