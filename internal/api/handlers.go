// Package api exposes the administrative mutation surface (category upsert,
// seeding, alert rules, freeze/release, manual override) and the read-only
// query surface used by dashboards. Authentication is handled by the
// surrounding platform in front of this service.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arkivbox/retention/internal/alerting"
	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/hold"
	"github.com/arkivbox/retention/internal/lifecycle"
	"github.com/arkivbox/retention/internal/record"
	"github.com/arkivbox/retention/internal/scheduler"
)

// Handlers carries the service dependencies for all HTTP endpoints.
type Handlers struct {
	db       *sql.DB
	registry *category.Registry
	catStore *category.Store
	records  *record.Store
	holds    *hold.Manager
	alerts   *alerting.Store
	runs     *scheduler.RunStore
	startAt  time.Time
}

func NewHandlers(db *sql.DB, registry *category.Registry, catStore *category.Store,
	records *record.Store, holds *hold.Manager, alerts *alerting.Store, runs *scheduler.RunStore) *Handlers {
	return &Handlers{
		db:       db,
		registry: registry,
		catStore: catStore,
		records:  records,
		holds:    holds,
		alerts:   alerts,
		runs:     runs,
		startAt:  time.Now(),
	}
}

// HealthCheck reports process and database health plus the most recent sweep
// of each kind, so a stalled worker shows up on the dashboard.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
	}
	if err := h.db.PingContext(r.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	for _, kind := range []scheduler.SweepKind{scheduler.KindTransition, scheduler.KindAlerts} {
		if runs, err := h.runs.Recent(r.Context(), kind, 1); err == nil && len(runs) > 0 {
			status["last_"+string(kind)+"_sweep"] = runs[0]
		}
	}
	respondJSON(w, http.StatusOK, status)
}

// --- Categories ---

type upsertCategoryRequest struct {
	DisplayName              string `json:"display_name"`
	JurisdictionRef          string `json:"jurisdiction_ref"`
	ActiveDurationYears      int    `json:"active_duration_years"`
	HasSemiActivePhase       bool   `json:"has_semi_active_phase"`
	SemiActiveDurationYears  int    `json:"semi_active_duration_years"`
	AlertBeforeArchiveMonths int    `json:"alert_before_archive_months"`
	RetentionYears           int    `json:"retention_years"`
	IsPerpetual              bool   `json:"is_perpetual"`
	Retroactive              bool   `json:"retroactive"`
	NotifyAdmin              bool   `json:"notify_admin"`
	NotifyResponsible        bool   `json:"notify_responsible"`
	NotifyAllMembers         bool   `json:"notify_all_members"`
	ResponsibleEmail         string `json:"responsible_email"`
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	cats, err := h.registry.List(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cats == nil {
		cats = []category.RetentionCategory{}
	}
	respondJSON(w, http.StatusOK, cats)
}

func (h *Handlers) UpsertCategory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	var req upsertCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := &category.RetentionCategory{
		OrganizationID:           orgID,
		Slug:                     chi.URLParam(r, "slug"),
		DisplayName:              req.DisplayName,
		JurisdictionRef:          req.JurisdictionRef,
		ActiveDurationYears:      req.ActiveDurationYears,
		HasSemiActivePhase:       req.HasSemiActivePhase,
		SemiActiveDurationYears:  req.SemiActiveDurationYears,
		AlertBeforeArchiveMonths: req.AlertBeforeArchiveMonths,
		RetentionYears:           req.RetentionYears,
		IsPerpetual:              req.IsPerpetual,
		Retroactive:              req.Retroactive,
		NotifyAdmin:              req.NotifyAdmin,
		NotifyResponsible:        req.NotifyResponsible,
		NotifyAllMembers:         req.NotifyAllMembers,
		ResponsibleEmail:         req.ResponsibleEmail,
	}
	force := r.URL.Query().Get("force") == "true"

	saved, err := h.registry.Upsert(r.Context(), c, force)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	if err := h.registry.Delete(r.Context(), orgID, chi.URLParam(r, "slug")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) SeedCategories(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	var req struct {
		Jurisdiction string `json:"jurisdiction"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	created, err := h.registry.SeedDefaults(r.Context(), orgID, req.Jurisdiction)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"created": created})
}

// --- Alert rules ---

type addAlertRuleRequest struct {
	Family      alerting.Family `json:"family"`
	OffsetValue int             `json:"offset_value"`
	OffsetUnit  alerting.Unit   `json:"offset_unit"`
}

func (h *Handlers) ListAlertRules(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	cat, err := h.registry.Get(r.Context(), orgID, chi.URLParam(r, "slug"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	rules, err := h.alerts.ListByCategory(r.Context(), cat.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rules == nil {
		rules = []alerting.AlertRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (h *Handlers) AddAlertRule(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	cat, err := h.registry.Get(r.Context(), orgID, chi.URLParam(r, "slug"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	var req addAlertRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Family == alerting.FamilyPreDeletion && cat.IsPerpetual {
		respondError(w, http.StatusBadRequest, "perpetual categories never schedule pre-deletion alerts")
		return
	}
	rule := &alerting.AlertRule{
		CategoryID:  cat.ID,
		Family:      req.Family,
		OffsetValue: req.OffsetValue,
		OffsetUnit:  req.OffsetUnit,
	}
	if err := h.alerts.Insert(r.Context(), rule); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *Handlers) DeleteAlertRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "ruleID")
	if !ok {
		return
	}
	if err := h.alerts.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Records ---

type createRecordRequest struct {
	CategorySlug string `json:"category_slug"`
	Fingerprint  string `json:"fingerprint"`
	Title        string `json:"title"`
}

func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cat, err := h.registry.Get(r.Context(), orgID, req.CategorySlug)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	exists, err := h.records.ExistsByFingerprint(r.Context(), orgID, req.Fingerprint)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if exists {
		respondError(w, http.StatusConflict, "content with this fingerprint is already archived")
		return
	}

	rec, err := record.New(orgID, cat, req.Fingerprint, req.Title, time.Now().UTC())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.records.Insert(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathUUID(w, r, "orgID")
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	state := record.State(q.Get("state"))
	if state != "" && !state.Valid() {
		respondError(w, http.StatusBadRequest, "unknown state filter")
		return
	}

	records, err := h.records.ListByOrg(r.Context(), orgID, state, q.Get("category"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []record.ArchiveRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// recordDetail is the dashboard view of one record: stored state plus the
// derived timeline (projected archive instant, expiry) and hold status.
type recordDetail struct {
	record.ArchiveRecord
	Hold               *hold.Status `json:"hold"`
	ProjectedArchiveAt *time.Time   `json:"projected_archive_at,omitempty"`
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	rec, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}

	status, err := h.holds.StatusFor(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail := recordDetail{ArchiveRecord: *rec, Hold: status}
	if rec.State == record.StateActive || rec.State == record.StateSemiActive {
		if cat, err := h.catStore.GetByID(r.Context(), rec.CategoryID); err == nil && cat != nil {
			at := lifecycle.ArchiveAt(rec, cat, status.FrozenTotal)
			detail.ProjectedArchiveAt = &at
		}
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handlers) GetRecordAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	fired, err := h.alerts.FiredFor(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fired == nil {
		fired = []alerting.FiredAlert{}
	}
	respondJSON(w, http.StatusOK, fired)
}

// --- Holds ---

func (h *Handlers) FreezeRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	lh, err := h.holds.Freeze(r.Context(), id, req.Reason, time.Now().UTC())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lh)
}

func (h *Handlers) ReleaseRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	lh, err := h.holds.Release(r.Context(), id, time.Now().UTC())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lh)
}

func (h *Handlers) ListRecordHolds(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	holds, err := h.holds.History(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if holds == nil {
		holds = []hold.LegalHold{}
	}
	respondJSON(w, http.StatusOK, holds)
}

// OverrideRecordState is the audited administrative escape hatch around the
// engine. Forward-only; every use is logged with the caller-supplied reason.
func (h *Handlers) OverrideRecordState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	var req struct {
		State  record.State `json:"state"`
		Reason string       `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := h.records.OverrideState(r.Context(), id, req.State, time.Now().UTC())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	logAudit("state_override", id, string(req.State), req.Reason)
	respondJSON(w, http.StatusOK, rec)
}

// --- Sweeps ---

func (h *Handlers) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	kind := scheduler.SweepKind(r.URL.Query().Get("kind"))
	if kind != scheduler.KindTransition && kind != scheduler.KindAlerts {
		respondError(w, http.StatusBadRequest, "kind must be transition or alerts")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.Recent(r.Context(), kind, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []scheduler.SweepRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// --- Helpers ---

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain sentinel errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound), errors.Is(err, record.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, category.ErrValidation),
		errors.Is(err, alerting.ErrValidation),
		errors.Is(err, record.ErrInvalidFingerprint):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, category.ErrCategoryInUse),
		errors.Is(err, category.ErrRetentionShrink),
		errors.Is(err, hold.ErrAlreadyFrozen),
		errors.Is(err, hold.ErrNotFrozen),
		errors.Is(err, hold.ErrRecordDestroyed),
		errors.Is(err, record.ErrBackwardTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
