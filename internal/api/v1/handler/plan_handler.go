package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// PlanHandler handles the plan catalog and purchases
type PlanHandler struct {
	plans    service.PlanService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(plans service.PlanService, validate *validator.Validate, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, validate: validate, logger: logger}
}

// RegisterRoutes mounts plan routes
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("GET /plans", authMw(http.HandlerFunc(h.listPlans)))
	mux.Handle("GET /plans/{planId}", authMw(http.HandlerFunc(h.getPlan)))
	mux.Handle("POST /plans/purchase", authMw(http.HandlerFunc(h.purchase)))

	mux.Handle("POST /admin/plans", adminMw(http.HandlerFunc(h.createPlan)))
	mux.Handle("PATCH /admin/plans/{planId}", adminMw(http.HandlerFunc(h.updatePlan)))
	mux.Handle("DELETE /admin/plans/{planId}", adminMw(http.HandlerFunc(h.deletePlan)))
}

// listPlans godoc
// @Summary List plans
// @Tags plans
// @Produce json
// @Success 200 {array} dto.PlanResponseDTO
// @Router /plans [get]
func (h *PlanHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]dto.PlanResponseDTO, 0, len(plans))
	for i := range plans {
		resp = append(resp, planResponse(&plans[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getPlan godoc
// @Summary Get a plan
// @Tags plans
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} dto.PlanResponseDTO
// @Failure 404 {string} string "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(r.Context(), r.PathValue("planId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(plan))
}

// purchase godoc
// @Summary Purchase a plan
// @Description Debits the plan cost from the balance, activates the plan and resets the daily quota. The referrer earns a bonus.
// @Tags plans
// @Accept json
// @Produce json
// @Param purchase body dto.PurchaseDTO true "Purchase request"
// @Success 200 {object} dto.AccountResponseDTO
// @Failure 400 {string} string "Insufficient balance"
// @Failure 409 {string} string "Already subscribed to this plan"
// @Router /plans/purchase [post]
func (h *PlanHandler) purchase(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	if accountID == "" {
		http.Error(w, "Unauthorized: Account ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.PurchaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	acc, err := h.plans.Purchase(r.Context(), accountID, req.PlanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acc))
}

// createPlan godoc
// @Summary Create a plan
// @Tags admin
// @Accept json
// @Produce json
// @Param plan body dto.PlanCreateDTO true "Plan creation request"
// @Success 201 {object} dto.PlanResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Router /admin/plans [post]
func (h *PlanHandler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	plan := &model.Plan{
		Name:         req.Name,
		Cost:         req.Cost,
		DailyReward:  req.DailyReward,
		VideosPerDay: req.VideosPerDay,
		DurationDays: req.DurationDays,
		TotalReward:  req.TotalReward,
	}
	created, err := h.plans.CreatePlan(r.Context(), plan)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, planResponse(created))
}

// updatePlan godoc
// @Summary Update a plan
// @Description Updates plan fields. Accounts already on the plan keep the terms they activated against.
// @Tags admin
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param plan body dto.PlanUpdateDTO true "Plan update request"
// @Success 200 {object} dto.PlanResponseDTO
// @Failure 404 {string} string "Plan not found"
// @Router /admin/plans/{planId} [patch]
func (h *PlanHandler) updatePlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := h.plans.GetPlan(r.Context(), r.PathValue("planId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Cost != nil {
		plan.Cost = *req.Cost
	}
	if req.DailyReward != nil {
		plan.DailyReward = *req.DailyReward
	}
	if req.VideosPerDay != nil {
		plan.VideosPerDay = *req.VideosPerDay
	}
	if req.DurationDays != nil {
		plan.DurationDays = *req.DurationDays
	}
	if req.TotalReward != nil {
		plan.TotalReward = *req.TotalReward
	}
	updated, err := h.plans.UpdatePlan(r.Context(), plan)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(updated))
}

// deletePlan godoc
// @Summary Delete a plan
// @Tags admin
// @Param planId path string true "Plan ID"
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Plan not found"
// @Router /admin/plans/{planId} [delete]
func (h *PlanHandler) deletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.DeletePlan(r.Context(), r.PathValue("planId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
