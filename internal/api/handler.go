package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ictserve/ictserve/internal/approval"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
	"github.com/ictserve/ictserve/internal/rules"
	"github.com/ictserve/ictserve/internal/sla"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	store      domain.Store
	cache      domain.Cache
	bus        domain.EventBus
	engine     *rules.Engine
	matrix     *approval.Matrix
	sla        *sla.Service
	dispatcher *dispatch.Dispatcher
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(store domain.Store, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, matrix *approval.Matrix, slaService *sla.Service, dispatcher *dispatch.Dispatcher, version string) *Handler {
	return &Handler{
		store:      store,
		cache:      cache,
		bus:        bus,
		engine:     engine,
		matrix:     matrix,
		sla:        slaService,
		dispatcher: dispatcher,
		version:    version,
	}
}

// TargetInput describes the record being evaluated.
type TargetInput struct {
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Status         string         `json:"status,omitempty"`
	Priority       string         `json:"priority,omitempty"`
	Category       string         `json:"category,omitempty"`
	AssigneeID     string         `json:"assigneeId,omitempty"`
	RequesterEmail string         `json:"requesterEmail,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
	CreatedAt      time.Time      `json:"createdAt,omitempty"`
}

// EvaluateRequest is the request body for POST /modules/{module}/evaluate.
type EvaluateRequest struct {
	Target TargetInput  `json:"target"`
	Facts  domain.Facts `json:"facts,omitempty"`
	DryRun bool         `json:"dryRun,omitempty"`
}

// Evaluate handles POST /modules/{module}/evaluate. It runs every
// enabled rule against the target's fact bag and dispatches the actions
// of the rules that fired. With dryRun set, nothing is persisted and no
// actions run.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	module := GetModule(ctx)
	traceID := GetTraceID(ctx)

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Target.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "target.id is required",
		})
		return
	}

	now := time.Now().UTC()

	target := &domain.Target{
		ID:             req.Target.ID,
		Module:         module,
		Title:          req.Target.Title,
		Status:         req.Target.Status,
		Priority:       domain.TicketPriority(req.Target.Priority),
		Category:       req.Target.Category,
		AssigneeID:     req.Target.AssigneeID,
		RequesterEmail: req.Target.RequesterEmail,
		Attributes:     req.Target.Attributes,
		CreatedAt:      req.Target.CreatedAt,
		UpdatedAt:      now,
	}
	if target.CreatedAt.IsZero() {
		// Re-evaluating a known target keeps its original creation time
		// so age-derived facts stay honest.
		if existing, err := h.store.GetTarget(ctx, module, target.ID); err == nil {
			target.CreatedAt = existing.CreatedAt
		} else {
			target.CreatedAt = now
		}
	}

	facts := target.ToFacts(now)
	for k, v := range req.Facts {
		facts[k] = v
	}

	evalStart := time.Now()
	matches := h.engine.EvaluateAll(ctx, module, facts)
	evalMs := time.Since(evalStart).Milliseconds()
	fired := rules.Fired(matches)

	var outcomes []domain.ActionOutcome
	var dispatchMs int64
	if !req.DryRun {
		if err := h.store.SaveTarget(ctx, target); err != nil {
			slog.Error("failed to save target", "target_id", target.ID, "error", err)
			writeError(w, err)
			return
		}

		dispatchStart := time.Now()
		for _, m := range fired {
			got, err := h.dispatcher.Dispatch(ctx, target, m.Actions)
			outcomes = append(outcomes, got...)
			var partial *domain.PartialFailure
			if errors.As(err, &partial) {
				slog.Warn("partial dispatch failure",
					"module", module,
					"target_id", target.ID,
					"rule_id", m.RuleID,
					"failed", partial.FailedCount(),
				)
			}
		}
		dispatchMs = time.Since(dispatchStart).Milliseconds()
	}

	evaluation := &domain.Evaluation{
		ID:        uuid.New().String(),
		Module:    module,
		TargetID:  target.ID,
		Timestamp: now,
		Matches:   matches,
		Outcomes:  outcomes,
		Metadata: domain.EvaluationMetadata{
			TraceID:        traceID,
			RulesEvaluated: len(matches),
			RulesFired:     len(fired),
			EvalMs:         evalMs,
			DispatchMs:     dispatchMs,
			TotalMs:        time.Since(start).Milliseconds(),
			EngineVersion:  h.version,
		},
	}

	if !req.DryRun {
		if err := h.store.SaveEvaluation(ctx, evaluation); err != nil {
			slog.Error("failed to save evaluation", "id", evaluation.ID, "error", err)
		}

		// Downstream consumers (audit, dashboards) get the full record.
		if payload, err := json.Marshal(evaluation); err == nil {
			if err := h.bus.Publish(ctx, module, domain.TopicTargetEvaluated, payload); err != nil {
				slog.Warn("failed to publish evaluation", "id", evaluation.ID, "error", err)
			}
		}
	}

	evaluationsTotal.WithLabelValues(string(module)).Inc()
	rulesFiredTotal.WithLabelValues(string(module)).Add(float64(len(fired)))
	for _, o := range outcomes {
		actionOutcomesTotal.WithLabelValues(string(module), o.Status).Inc()
	}
	evaluationDuration.WithLabelValues(string(module)).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, evaluation)
}

// GetEvaluation retrieves an evaluation record by ID.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	evalID := chi.URLParam(r, "id")

	eval, err := h.store.GetEvaluation(ctx, module, evalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// GetTarget retrieves a target record by ID.
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	targetID := chi.URLParam(r, "id")

	target, err := h.store.GetTarget(ctx, module, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// ListNotifications returns the notifications created for a target.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	targetID := chi.URLParam(r, "id")

	notifications, err := h.store.ListNotifications(ctx, module, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// ---- automation rules ----

// ListRules returns the module's rule set in evaluation order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	ruleSet, err := h.store.GetRules(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": ruleSet,
		"count": len(ruleSet),
	})
}

// GetRule retrieves a rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	ruleID := chi.URLParam(r, "id")

	rule, err := h.store.GetRule(ctx, module, ruleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// SaveRule creates or updates a rule, then hot-reloads the engine so
// the change is visible to the next evaluation.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var rule domain.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	rule.Module = module
	if id := chi.URLParam(r, "id"); id != "" {
		rule.ID = id
	}

	saved, err := h.store.SaveRule(ctx, &rule)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reloadRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("rule saved", "module", module, "id", saved.ID, "name", saved.Name)
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteRule removes a rule and hot-reloads the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	ruleID := chi.URLParam(r, "id")

	if err := h.store.DeleteRule(ctx, module, ruleID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.reloadRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("rule deleted", "module", module, "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": ruleID})
}

// TestRulesRequest is the request body for POST .../rules/test.
type TestRulesRequest struct {
	Facts domain.Facts `json:"facts"`
}

// TestRules evaluates the loaded rule set against an ad hoc fact bag
// without persisting anything or dispatching actions.
func (h *Handler) TestRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var req TestRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	matches := h.engine.EvaluateAll(ctx, module, req.Facts)
	fired := rules.Fired(matches)

	writeJSON(w, http.StatusOK, map[string]any{
		"matches":    matches,
		"firedCount": len(fired),
	})
}

// ResetRules replaces the module's rule set with the built-in defaults.
func (h *Handler) ResetRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	if err := h.store.ResetRules(ctx, module); err != nil {
		writeError(w, err)
		return
	}
	if err := h.reloadRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("rules reset to defaults", "module", module)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reset to defaults",
		"count":   h.engine.RulesCount(module),
	})
}

// ExportRules streams the module's rule set as a JSON document.
func (h *Handler) ExportRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := h.store.ExportRules(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(module)+`-rules.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// ImportRules atomically replaces the module's rule set from an
// exported document. A malformed or invalid document leaves the store
// untouched.
func (h *Handler) ImportRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
		return
	}

	if err := h.store.ImportRules(ctx, module, doc); err != nil {
		writeError(w, err)
		return
	}
	if err := h.reloadRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("rules imported", "module", module, "count", h.engine.RulesCount(module))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules imported",
		"count":   h.engine.RulesCount(module),
	})
}

// reloadRules refreshes the engine's compiled snapshot from the store.
func (h *Handler) reloadRules(r *http.Request, module domain.Module) error {
	ruleSet, err := h.store.GetRules(r.Context(), module)
	if err != nil {
		return err
	}
	return h.engine.ReloadRules(module, ruleSet)
}

// ---- approval rules ----

// ListApprovalRules returns the module's approval matrix rules.
func (h *Handler) ListApprovalRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	ruleSet, err := h.store.GetApprovalRules(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": ruleSet,
		"count": len(ruleSet),
	})
}

// GetApprovalRule returns one approval rule.
func (h *Handler) GetApprovalRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	ruleID := chi.URLParam(r, "id")

	rule, err := h.store.GetApprovalRule(ctx, module, ruleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// SaveApprovalRule creates or updates an approval rule and reloads the
// matrix.
func (h *Handler) SaveApprovalRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var rule domain.ApprovalRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	rule.Module = module
	if id := chi.URLParam(r, "id"); id != "" {
		rule.ID = id
	}

	saved, err := h.store.SaveApprovalRule(ctx, &rule)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reloadApprovalRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("approval rule saved", "module", module, "id", saved.ID, "name", saved.Name)
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteApprovalRule removes an approval rule and reloads the matrix.
func (h *Handler) DeleteApprovalRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)
	ruleID := chi.URLParam(r, "id")

	if err := h.store.DeleteApprovalRule(ctx, module, ruleID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.reloadApprovalRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("approval rule deleted", "module", module, "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": ruleID})
}

// TestApprovalRules resolves an approval chain for a hypothetical
// request without side effects.
func (h *Handler) TestApprovalRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var req domain.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	chain := h.matrix.Resolve(ctx, module, &req)
	writeJSON(w, http.StatusOK, chain)
}

// ResetApprovalRules replaces the module's approval matrix with the
// built-in defaults.
func (h *Handler) ResetApprovalRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	if err := h.store.ResetApprovalRules(ctx, module); err != nil {
		writeError(w, err)
		return
	}
	if err := h.reloadApprovalRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("approval rules reset to defaults", "module", module)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "approval rules reset to defaults",
		"count":   h.matrix.RulesCount(module),
	})
}

// ExportApprovalRules streams the approval matrix as a JSON document.
func (h *Handler) ExportApprovalRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := h.store.ExportApprovalRules(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(module)+`-approval-rules.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// ImportApprovalRules atomically replaces the approval matrix from an
// exported document.
func (h *Handler) ImportApprovalRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
		return
	}

	if err := h.store.ImportApprovalRules(ctx, module, doc); err != nil {
		writeError(w, err)
		return
	}
	if err := h.reloadApprovalRules(r, module); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("approval rules imported", "module", module, "count", h.matrix.RulesCount(module))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "approval rules imported",
		"count":   h.matrix.RulesCount(module),
	})
}

func (h *Handler) reloadApprovalRules(r *http.Request, module domain.Module) error {
	ruleSet, err := h.store.GetApprovalRules(r.Context(), module)
	if err != nil {
		return err
	}
	h.matrix.ReloadRules(module, ruleSet)
	return nil
}

// ---- SLA configuration ----

// GetSLAConfig returns the module's SLA configuration aggregate.
func (h *Handler) GetSLAConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	cfg, err := h.store.GetSLAConfig(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutSLAConfig replaces the module's SLA configuration and reloads the
// SLA service.
func (h *Handler) PutSLAConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var cfg domain.SLAConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	cfg.Module = module

	if err := h.store.SaveSLAConfig(ctx, &cfg); err != nil {
		writeError(w, err)
		return
	}
	h.sla.ReloadConfig(&cfg)

	slog.Info("sla config saved", "module", module, "categories", len(cfg.Categories))
	writeJSON(w, http.StatusOK, &cfg)
}

// TestSLARequest is the request body for POST .../sla/test.
type TestSLARequest struct {
	Priority  domain.TicketPriority `json:"priority"`
	Category  string                `json:"category"`
	CreatedAt time.Time             `json:"createdAt"`
}

// TestSLA computes the deadlines and alert points a ticket would get
// under the current configuration.
func (h *Handler) TestSLA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	var req TestSLARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	window, err := h.sla.GetSLA(module, req.Priority, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}

	deadlines, err := h.sla.CalculateDeadlines(ctx, module, req.Priority, req.Category, req.CreatedAt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window":    window,
		"deadlines": deadlines,
		"alerts":    h.sla.NotificationPoints(module, deadlines.ResolutionDeadline),
	})
}

// ResetSLAConfig restores the module's SLA defaults.
func (h *Handler) ResetSLAConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	if err := h.store.ResetSLAConfig(ctx, module); err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.store.GetSLAConfig(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}
	h.sla.ReloadConfig(cfg)

	slog.Info("sla config reset to defaults", "module", module)
	writeJSON(w, http.StatusOK, cfg)
}

// ExportSLAConfig streams the SLA configuration as a JSON document.
func (h *Handler) ExportSLAConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := h.store.ExportSLAConfig(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(module)+`-sla.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// ImportSLAConfig replaces the SLA configuration from an exported
// document.
func (h *Handler) ImportSLAConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	module := GetModule(ctx)

	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
		return
	}

	if err := h.store.ImportSLAConfig(ctx, module, doc); err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.store.GetSLAConfig(ctx, module)
	if err != nil {
		writeError(w, err)
		return
	}
	h.sla.ReloadConfig(cfg)

	slog.Info("sla config imported", "module", module)
	writeJSON(w, http.StatusOK, cfg)
}

// ---- health ----

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrMalformedInput):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
