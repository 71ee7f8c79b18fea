package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dan9191/gigfin-service/internal/models"
	"github.com/Dan9191/gigfin-service/internal/service"
	"github.com/gorilla/mux"
)

// CreateGoal registers a savings goal.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name                string `json:"name"`
		TargetAmount        int64  `json:"target_amount"`
		TargetDate          string `json:"target_date,omitempty"`
		MonthlyContribution int64  `json:"monthly_contribution,omitempty"`
		Priority            int    `json:"priority,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	goal := &models.Goal{
		UserID:              userID,
		Name:                req.Name,
		TargetAmount:        req.TargetAmount,
		MonthlyContribution: req.MonthlyContribution,
		Priority:            req.Priority,
	}
	if req.TargetDate != "" {
		t, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			http.Error(w, "target_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		goal.TargetDate = &t
	}
	goal, err := h.svc.CreateGoal(goal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, goal)
}

// ListGoals returns the user's goals, highest priority first.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	goals, err := h.svc.ListGoals(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

// GetGoal returns one goal with its progress projection.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	goal, analysis, err := h.svc.GetGoal(userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"goal": goal, "analysis": analysis})
}

// UpdateGoal applies a partial update to a goal.
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name                *string `json:"name,omitempty"`
		TargetAmount        *int64  `json:"target_amount,omitempty"`
		TargetDate          *string `json:"target_date,omitempty"`
		MonthlyContribution *int64  `json:"monthly_contribution,omitempty"`
		Priority            *int    `json:"priority,omitempty"`
		Status              *string `json:"status,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	patch := service.GoalPatch{
		Name:                req.Name,
		TargetAmount:        req.TargetAmount,
		MonthlyContribution: req.MonthlyContribution,
		Priority:            req.Priority,
		Status:              req.Status,
	}
	if req.TargetDate != nil {
		t, err := time.Parse("2006-01-02", *req.TargetDate)
		if err != nil {
			http.Error(w, "target_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.TargetDate = &t
	}
	goal, err := h.svc.UpdateGoal(userID, mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, goal)
}

// ContributeToGoal adds progress to an active goal.
func (h *Handler) ContributeToGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	goal, err := h.svc.ContributeToGoal(userID, mux.Vars(r)["id"], req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, goal)
}

// DeleteGoal removes a goal.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteGoal(userID, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// SimulateGoal runs what-if savings scenarios against a goal.
func (h *Handler) SimulateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Scenarios []models.GoalScenario `json:"scenarios"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	results, err := h.svc.SimulateGoal(userID, mux.Vars(r)["id"], req.Scenarios)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"scenarios": results})
}
