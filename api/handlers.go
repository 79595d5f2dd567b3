/*
handlers.go - HTTP API handlers for the CE compliance engine

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Credentials:
    GET    /api/credentials                   List all credentials
    POST   /api/credentials                   Create credential
    GET    /api/credentials/{id}              Get credential details
    GET    /api/credentials/{id}/compliance   Remaining CE, overall + per category
    GET    /api/credentials/{id}/periods      List renewal periods
    POST   /api/credentials/{id}/periods      Create renewal period

  Periods:
    GET    /api/periods/{id}/reinstatement    Extra-CE requirement + category status

  Activities:
    GET    /api/activities                    List (filterable)
    POST   /api/activities                    Record a CE activity
    POST   /api/activities/assign             Run the period-linkage pass

  Preferences & admin:
    GET    /api/preferences                   Reminder configuration
    PUT    /api/preferences                   Update reminder configuration
    POST   /api/admin/replan                  Manual replan trigger
    GET    /api/health                        Liveness check

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (calculators, resolver, replanner)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background replan on a ticker
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/credential-engine/ce"
	"github.com/warp/credential-engine/notify"
	"github.com/warp/credential-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Gateway   notify.Gateway
	Replanner *notify.Replanner

	resolver  ce.PeriodResolver
	calc      ce.ComplianceCalculator
	reinstate ce.ReinstatementCalculator
}

// NewHandler creates a new handler with the given store and gateway.
func NewHandler(store *sqlite.Store, gateway notify.Gateway) *Handler {
	return &Handler{
		Store:     store,
		Gateway:   gateway,
		Replanner: notify.NewReplanner(store, gateway),
	}
}

// =============================================================================
// CREDENTIAL HANDLERS
// =============================================================================

// ListCredentials returns all credentials.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Store.FetchCredentials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list credentials", err)
		return
	}

	dtos := make([]CredentialDTO, len(creds))
	for i, c := range creds {
		dtos[i] = credentialDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCredential returns a single credential.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	id := ce.CredentialID(chi.URLParam(r, "id"))

	cred, err := h.Store.FetchCredential(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get credential", err)
		return
	}
	writeJSON(w, http.StatusOK, credentialDTO(*cred))
}

// CreateCredential creates a new credential.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	unit := ce.Unit(req.MeasurementDefault)
	if unit == "" {
		unit = ce.UnitHours
	}

	cred := ce.Credential{
		ID:                 ce.CredentialID(id),
		Name:               req.Name,
		MeasurementDefault: unit,
		HoursPerUnit:       decimal.NewFromFloat(req.HoursPerUnit),
		RequiredCEs:        decimal.NewFromFloat(req.RequiredCEs),
	}
	for _, cat := range req.SpecialCategories {
		catID := cat.ID
		if catID == "" {
			catID = uuid.NewString()
		}
		catUnit := ce.Unit(cat.MeasurementDefault)
		if catUnit == "" {
			catUnit = unit
		}
		cred.SpecialCategories = append(cred.SpecialCategories, ce.SpecialCategory{
			ID:                 ce.CategoryID(catID),
			CredentialID:       cred.ID,
			Name:               cat.Name,
			RequiredHours:      decimal.NewFromFloat(cat.RequiredHours),
			MeasurementDefault: catUnit,
		})
	}

	if err := h.Store.SaveCredential(r.Context(), cred); err != nil {
		writeStoreError(w, "Failed to create credential", err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialDTO(cred))
}

// GetCompliance returns remaining CE for every renewal period of a
// credential, overall and per special category. Accepts ?as_of=YYYY-MM-DD;
// defaults to today.
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ce.CredentialID(chi.URLParam(r, "id"))

	asOf := ce.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	cred, err := h.Store.FetchCredential(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to get credential", err)
		return
	}
	periods, err := h.Store.FetchRenewalPeriods(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to get periods", err)
		return
	}
	activities, err := h.Store.FetchActivities(ctx, ce.ActivityFilter{CredentialID: &id})
	if err != nil {
		writeStoreError(w, "Failed to get activities", err)
		return
	}

	resp := ComplianceResponse{
		CredentialID: string(id),
		AsOf:         asOf.String(),
		Periods:      make([]PeriodComplianceDTO, 0, len(periods)),
	}
	for _, p := range periods {
		overall := h.calc.RemainingOverallCE(*cred, p, periods, activities, asOf)
		byCat := h.calc.RemainingSpecialCategoryCE(*cred, p, activities)

		dto := PeriodComplianceDTO{
			PeriodID:  string(p.ID),
			IsCurrent: overall.IsCurrent,
			Required:  amountDTO(overall.Required),
			Earned:    amountDTO(overall.Earned),
			Remaining: amountDTO(overall.Remaining),
		}
		if len(byCat) > 0 {
			dto.Categories = make(map[string]CategoryComplianceDTO, len(byCat))
			for name, cc := range byCat {
				dto.Categories[name] = CategoryComplianceDTO{
					CategoryID: string(cc.CategoryID),
					Name:       cc.Name,
					Required:   amountDTO(cc.Required),
					Earned:     amountDTO(cc.Earned),
					Remaining:  amountDTO(cc.Remaining),
				}
			}
		}
		resp.Periods = append(resp.Periods, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// RENEWAL PERIOD HANDLERS
// =============================================================================

// ListPeriods returns the renewal periods of a credential.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	id := ce.CredentialID(chi.URLParam(r, "id"))

	periods, err := h.Store.FetchRenewalPeriods(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = periodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePeriod creates a renewal period for a credential.
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	credID := ce.CredentialID(chi.URLParam(r, "id"))

	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Period creation references an existing credential.
	if _, err := h.Store.FetchCredential(r.Context(), credID); err != nil {
		writeStoreError(w, "Failed to get credential", err)
		return
	}

	start, err := parseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end format (use YYYY-MM-DD)", err)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := ce.RenewalPeriod{
		ID:           ce.PeriodID(id),
		CredentialID: credID,
		Start:        start,
		End:          end,
		Completed:    req.Completed,
	}
	if p.ApplicationWindowStart, err = parseDatePtr(req.ApplicationWindowStart); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid application_window_start", err)
		return
	}
	if p.LateFeeDate, err = parseDatePtr(req.LateFeeDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid late_fee_date", err)
		return
	}
	if req.LateFeeAmount != nil {
		amt := decimal.NewFromFloat(*req.LateFeeAmount)
		p.LateFeeAmount = &amt
	}
	if req.Reinstatement != nil {
		ri, err := reinstatementFromDTO(p.ID, *req.Reinstatement)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reinstatement", err)
			return
		}
		p.Reinstatement = ri
	}

	if err := h.Store.SaveRenewalPeriod(r.Context(), p); err != nil {
		writeStoreError(w, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, periodDTO(p))
}

// GetReinstatement returns the extra-CE position of a lapsed period, in
// clock hours. A period without reinstatement info yields the zero
// position with Met=true - "nothing required" is not an error.
func (h *Handler) GetReinstatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ce.PeriodID(chi.URLParam(r, "id"))

	period, err := h.Store.FetchRenewalPeriod(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to get period", err)
		return
	}
	cred, err := h.Store.FetchCredential(ctx, period.CredentialID)
	if err != nil {
		writeStoreError(w, "Failed to get credential", err)
		return
	}
	activities, err := h.Store.FetchActivities(ctx, ce.ActivityFilter{PeriodID: &id})
	if err != nil {
		writeStoreError(w, "Failed to get activities", err)
		return
	}

	req := h.reinstate.Requirement(cred, *period, activities)
	status := h.reinstate.SpecialCategoryStatus(cred, *period, activities)

	resp := ReinstatementStatusResponse{
		PeriodID:    string(id),
		Required:    amountDTO(req.Required),
		Earned:      amountDTO(req.Earned),
		Remaining:   amountDTO(req.Remaining()),
		Met:         status.Met,
		Outstanding: make(map[string]AmountDTO, len(status.Outstanding)),
	}
	for catID, deficit := range status.Outstanding {
		resp.Outstanding[string(catID)] = amountDTO(deficit)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// ListActivities returns activities, optionally filtered by credential_id,
// period_id, or completed.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	var filter ce.ActivityFilter
	q := r.URL.Query()
	if s := q.Get("credential_id"); s != "" {
		id := ce.CredentialID(s)
		filter.CredentialID = &id
	}
	if s := q.Get("period_id"); s != "" {
		id := ce.PeriodID(s)
		filter.PeriodID = &id
	}
	if s := q.Get("completed"); s != "" {
		completed := s == "true"
		filter.Completed = &completed
	}

	activities, err := h.Store.FetchActivities(r.Context(), filter)
	if err != nil {
		writeStoreError(w, "Failed to list activities", err)
		return
	}
	dtos := make([]ActivityDTO, len(activities))
	for i, a := range activities {
		dtos[i] = activityDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateActivity records a CE-earning activity.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AwardedValue < 0 {
		writeError(w, http.StatusBadRequest, "awarded_value must not be negative", ce.ErrNegativeAmount)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	unit := ce.Unit(req.AwardedUnit)
	if unit == "" {
		unit = ce.UnitHours
	}
	a := ce.Activity{
		ID:               ce.ActivityID(id),
		Title:            req.Title,
		Awarded:          ce.NewAmount(req.AwardedValue, unit),
		Completed:        req.Completed,
		ForReinstatement: req.ForReinstatement,
	}
	for _, credID := range req.CredentialIDs {
		a.CredentialIDs = append(a.CredentialIDs, ce.CredentialID(credID))
	}
	if req.CategoryID != nil {
		catID := ce.CategoryID(*req.CategoryID)
		a.CategoryID = &catID
	}
	var err error
	if a.CompletionDate, err = parseDatePtr(req.CompletionDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid completion_date", err)
		return
	}
	if a.ExpiresAt, err = parseDatePtr(req.ExpiresAt); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expires_at", err)
		return
	}

	if err := h.Store.SaveActivity(r.Context(), a); err != nil {
		writeStoreError(w, "Failed to create activity", err)
		return
	}
	writeJSON(w, http.StatusCreated, activityDTO(a))
}

// AssignActivities runs the Period Resolver linkage pass across all
// activities and applies the resulting changes. Idempotent: a second run
// with unchanged data reports zero changes.
func (h *Handler) AssignActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := h.Store.FetchCredentials(ctx)
	if err != nil {
		writeStoreError(w, "Failed to list credentials", err)
		return
	}
	var periods []ce.RenewalPeriod
	for _, c := range creds {
		ps, err := h.Store.FetchRenewalPeriods(ctx, c.ID)
		if err != nil {
			writeStoreError(w, "Failed to list periods", err)
			return
		}
		periods = append(periods, ps...)
	}
	activities, err := h.Store.FetchActivities(ctx, ce.ActivityFilter{})
	if err != nil {
		writeStoreError(w, "Failed to list activities", err)
		return
	}

	changes := h.resolver.Relink(activities, periods)
	resp := AssignResponse{Changed: len(changes), Changes: make(map[string]*string, len(changes))}
	for actID, periodID := range changes {
		if err := h.Store.SetActivityPeriod(ctx, actID, periodID); err != nil {
			writeStoreError(w, "Failed to apply linkage", err)
			return
		}
		var val *string
		if periodID != nil {
			s := string(*periodID)
			val = &s
		}
		resp.Changes[string(actID)] = val
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// PREFERENCES & ADMIN HANDLERS
// =============================================================================

// GetPreferences returns the reminder configuration.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Store.LoadPreferences(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesDTO(prefs))
}

// UpdatePreferences stores a new reminder configuration. The next replan
// (background or manual) regenerates every entry under the new lead times.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	prefs := notify.Preferences{
		LeadDaysPrimary:          req.LeadDaysPrimary,
		LeadDaysSecondary:        req.LeadDaysSecondary,
		LeadMinutesPrimaryLive:   req.LeadMinutesPrimaryLive,
		LeadMinutesSecondaryLive: req.LeadMinutesSecondaryLive,
		TimeOfDay:                ce.TimeOfDay(req.TimeOfDay),
	}
	if len(req.Toggles) > 0 {
		prefs.Toggles = make(map[notify.Type]bool, len(req.Toggles))
		for k, v := range req.Toggles {
			prefs.Toggles[notify.Type(k)] = v
		}
	}
	prefs = prefs.Normalized()

	if err := h.Store.SavePreferences(r.Context(), prefs); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesDTO(prefs))
}

// TriggerReplan runs a full replan pass immediately.
func (h *Handler) TriggerReplan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prefs, err := h.Store.LoadPreferences(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load preferences", err)
		return
	}
	sum, err := h.Replanner.Replan(ctx, prefs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Replan failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ReplanResponse{
		Planned:       sum.Planned,
		Dropped:       sum.Dropped,
		Suppressed:    sum.Suppressed,
		Authorization: string(h.Gateway.Authorization(ctx)),
	})
}

// Health is the liveness check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// DTO MAPPING
// =============================================================================

func credentialDTO(c ce.Credential) CredentialDTO {
	ratio, _ := c.HoursPerUnit.Float64()
	required, _ := c.RequiredCEs.Float64()
	dto := CredentialDTO{
		ID:                 string(c.ID),
		Name:               c.Name,
		MeasurementDefault: string(c.MeasurementDefault),
		HoursPerUnit:       ratio,
		RequiredCEs:        required,
	}
	for _, cat := range c.SpecialCategories {
		hours, _ := cat.RequiredHours.Float64()
		dto.SpecialCategories = append(dto.SpecialCategories, SpecialCategoryDTO{
			ID:                 string(cat.ID),
			Name:               cat.Name,
			RequiredHours:      hours,
			MeasurementDefault: string(cat.MeasurementDefault),
		})
	}
	return dto
}

func periodDTO(p ce.RenewalPeriod) PeriodDTO {
	dto := PeriodDTO{
		ID:           string(p.ID),
		CredentialID: string(p.CredentialID),
		Start:        p.Start.String(),
		End:          p.End.String(),
		Completed:    p.Completed,
	}
	dto.ApplicationWindowStart = dateStringPtr(p.ApplicationWindowStart)
	dto.LateFeeDate = dateStringPtr(p.LateFeeDate)
	if p.LateFeeAmount != nil {
		v, _ := p.LateFeeAmount.Float64()
		dto.LateFeeAmount = &v
	}
	if ri := p.Reinstatement; ri != nil {
		total, _ := ri.TotalExtraCEs.Float64()
		riDTO := &ReinstatementInfoDTO{
			TotalExtraCEs: total,
			Deadline:      ri.Deadline.String(),
		}
		for _, cat := range ri.Categories {
			required, _ := cat.CEsRequired.Float64()
			riDTO.Categories = append(riDTO.Categories, ReinstatementCategoryDTO{
				CategoryID:  string(cat.CategoryID),
				Name:        cat.Name,
				CEsRequired: required,
			})
		}
		dto.Reinstatement = riDTO
	}
	return dto
}

func reinstatementFromDTO(periodID ce.PeriodID, dto ReinstatementInfoDTO) (*ce.ReinstatementInfo, error) {
	deadline, err := parseDate(dto.Deadline)
	if err != nil {
		return nil, err
	}
	ri := &ce.ReinstatementInfo{
		PeriodID:      periodID,
		TotalExtraCEs: decimal.NewFromFloat(dto.TotalExtraCEs),
		Deadline:      deadline,
	}
	for _, cat := range dto.Categories {
		ri.Categories = append(ri.Categories, ce.ReinstatementSpecialCat{
			CategoryID:  ce.CategoryID(cat.CategoryID),
			Name:        cat.Name,
			CEsRequired: decimal.NewFromFloat(cat.CEsRequired),
		})
	}
	return ri, nil
}

func activityDTO(a ce.Activity) ActivityDTO {
	dto := ActivityDTO{
		ID:               string(a.ID),
		Title:            a.Title,
		Awarded:          amountDTO(a.Awarded),
		Completed:        a.Completed,
		ForReinstatement: a.ForReinstatement,
		CredentialIDs:    make([]string, len(a.CredentialIDs)),
	}
	for i, credID := range a.CredentialIDs {
		dto.CredentialIDs[i] = string(credID)
	}
	dto.CompletionDate = dateStringPtr(a.CompletionDate)
	dto.ExpiresAt = dateStringPtr(a.ExpiresAt)
	if a.PeriodID != nil {
		s := string(*a.PeriodID)
		dto.PeriodID = &s
	}
	if a.CategoryID != nil {
		s := string(*a.CategoryID)
		dto.CategoryID = &s
	}
	return dto
}

func preferencesDTO(p notify.Preferences) PreferencesDTO {
	dto := PreferencesDTO{
		LeadDaysPrimary:          p.LeadDaysPrimary,
		LeadDaysSecondary:        p.LeadDaysSecondary,
		LeadMinutesPrimaryLive:   p.LeadMinutesPrimaryLive,
		LeadMinutesSecondaryLive: p.LeadMinutesSecondaryLive,
		TimeOfDay:                string(p.TimeOfDay),
	}
	if len(p.Toggles) > 0 {
		dto.Toggles = make(map[string]bool, len(p.Toggles))
		for k, v := range p.Toggles {
			dto.Toggles[string(k)] = v
		}
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (ce.TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ce.TimePoint{}, err
	}
	return ce.NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

func parseDatePtr(s *string) (*ce.TimePoint, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	tp, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func dateStringPtr(tp *ce.TimePoint) *string {
	if tp == nil {
		return nil
	}
	s := tp.String()
	return &s
}

// writeStoreError maps store errors to status codes: missing records are
// 404, validation sentinels 400, everything else 500.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case ce.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ce.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
