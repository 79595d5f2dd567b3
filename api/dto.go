/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Day-valued fields travel as "YYYY-MM-DD"; the live-event start time as
  RFC3339. Amounts travel as {value, unit} with a float value - clients
  display, the server computes, so decimal precision stays server-side.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ce/types.go: The domain model these project
*/
package api

import (
	"github.com/warp/credential-engine/ce"
)

// =============================================================================
// SHARED PIECES
// =============================================================================

// AmountDTO is a CE quantity in API responses.
type AmountDTO struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func amountDTO(a ce.Amount) AmountDTO {
	v, _ := a.Value.Float64()
	return AmountDTO{Value: v, Unit: string(a.Unit)}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// SpecialCategoryDTO represents a mandated CE sub-requirement.
type SpecialCategoryDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	RequiredHours      float64 `json:"required_hours"`
	MeasurementDefault string  `json:"measurement_default,omitempty"`
}

// CredentialDTO represents a credential in API responses.
type CredentialDTO struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	MeasurementDefault string               `json:"measurement_default"`
	HoursPerUnit       float64              `json:"hours_per_unit"`
	RequiredCEs        float64              `json:"required_ces"`
	SpecialCategories  []SpecialCategoryDTO `json:"special_categories,omitempty"`
}

// CreateCredentialRequest is the request to create a credential.
// A missing ID is generated server-side.
type CreateCredentialRequest struct {
	ID                 string               `json:"id,omitempty"`
	Name               string               `json:"name"`
	MeasurementDefault string               `json:"measurement_default,omitempty"`
	HoursPerUnit       float64              `json:"hours_per_unit,omitempty"`
	RequiredCEs        float64              `json:"required_ces"`
	SpecialCategories  []SpecialCategoryDTO `json:"special_categories,omitempty"`
}

// =============================================================================
// RENEWAL PERIODS
// =============================================================================

// ReinstatementCategoryDTO is a per-category extra-CE sub-requirement.
type ReinstatementCategoryDTO struct {
	CategoryID  string  `json:"category_id"`
	Name        string  `json:"name,omitempty"`
	CEsRequired float64 `json:"ces_required"`
}

// ReinstatementInfoDTO is the extra-CE info attached to a lapsed period.
type ReinstatementInfoDTO struct {
	TotalExtraCEs float64                    `json:"total_extra_ces"`
	Deadline      string                     `json:"deadline"`
	Categories    []ReinstatementCategoryDTO `json:"categories,omitempty"`
}

// PeriodDTO represents a renewal period in API responses.
type PeriodDTO struct {
	ID                     string                `json:"id"`
	CredentialID           string                `json:"credential_id"`
	Start                  string                `json:"start"`
	End                    string                `json:"end"`
	ApplicationWindowStart *string               `json:"application_window_start,omitempty"`
	LateFeeDate            *string               `json:"late_fee_date,omitempty"`
	LateFeeAmount          *float64              `json:"late_fee_amount,omitempty"`
	Completed              bool                  `json:"completed"`
	Reinstatement          *ReinstatementInfoDTO `json:"reinstatement,omitempty"`
}

// CreatePeriodRequest is the request to create a renewal period for a
// credential. The credential ID comes from the URL.
type CreatePeriodRequest struct {
	ID                     string                `json:"id,omitempty"`
	Start                  string                `json:"start"`
	End                    string                `json:"end"`
	ApplicationWindowStart *string               `json:"application_window_start,omitempty"`
	LateFeeDate            *string               `json:"late_fee_date,omitempty"`
	LateFeeAmount          *float64              `json:"late_fee_amount,omitempty"`
	Completed              bool                  `json:"completed"`
	Reinstatement          *ReinstatementInfoDTO `json:"reinstatement,omitempty"`
}

// =============================================================================
// ACTIVITIES
// =============================================================================

// ActivityDTO represents a CE-earning record.
type ActivityDTO struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Awarded          AmountDTO `json:"awarded"`
	Completed        bool      `json:"completed"`
	CompletionDate   *string   `json:"completion_date,omitempty"`
	ExpiresAt        *string   `json:"expires_at,omitempty"`
	CredentialIDs    []string  `json:"credential_ids"`
	PeriodID         *string   `json:"period_id,omitempty"`
	CategoryID       *string   `json:"category_id,omitempty"`
	ForReinstatement bool      `json:"for_reinstatement,omitempty"`
}

// CreateActivityRequest is the request to record a CE activity.
type CreateActivityRequest struct {
	ID               string   `json:"id,omitempty"`
	Title            string   `json:"title"`
	AwardedValue     float64  `json:"awarded_value"`
	AwardedUnit      string   `json:"awarded_unit,omitempty"`
	Completed        bool     `json:"completed"`
	CompletionDate   *string  `json:"completion_date,omitempty"`
	ExpiresAt        *string  `json:"expires_at,omitempty"`
	CredentialIDs    []string `json:"credential_ids"`
	CategoryID       *string  `json:"category_id,omitempty"`
	ForReinstatement bool     `json:"for_reinstatement,omitempty"`
}

// AssignResponse reports a Period Resolver linkage pass. Changes maps
// activity ID to new period ID; null means "now unassigned". Activities
// whose linkage did not change are omitted.
type AssignResponse struct {
	Changed int                `json:"changed"`
	Changes map[string]*string `json:"changes"`
}

// =============================================================================
// COMPLIANCE
// =============================================================================

// CategoryComplianceDTO is the remaining requirement for one special
// category. Remaining is signed: negative means surplus.
type CategoryComplianceDTO struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Required   AmountDTO `json:"required"`
	Earned     AmountDTO `json:"earned"`
	Remaining  AmountDTO `json:"remaining"`
}

// PeriodComplianceDTO is the compliance position for one renewal period.
type PeriodComplianceDTO struct {
	PeriodID   string                           `json:"period_id"`
	IsCurrent  bool                             `json:"is_current"`
	Required   AmountDTO                        `json:"required"`
	Earned     AmountDTO                        `json:"earned"`
	Remaining  AmountDTO                        `json:"remaining"`
	Categories map[string]CategoryComplianceDTO `json:"categories,omitempty"`
}

// ComplianceResponse is the full compliance view of a credential.
type ComplianceResponse struct {
	CredentialID string                `json:"credential_id"`
	AsOf         string                `json:"as_of"`
	Periods      []PeriodComplianceDTO `json:"periods"`
}

// ReinstatementStatusResponse is the extra-CE position of a lapsed period.
// All amounts are clock hours; Outstanding lists positive deficits only.
type ReinstatementStatusResponse struct {
	PeriodID    string               `json:"period_id"`
	Required    AmountDTO            `json:"required"`
	Earned      AmountDTO            `json:"earned"`
	Remaining   AmountDTO            `json:"remaining"`
	Met         bool                 `json:"met"`
	Outstanding map[string]AmountDTO `json:"outstanding"`
}

// =============================================================================
// PREFERENCES & REPLAN
// =============================================================================

// PreferencesDTO mirrors notify.Preferences on the wire.
type PreferencesDTO struct {
	LeadDaysPrimary          int             `json:"lead_days_primary"`
	LeadDaysSecondary        int             `json:"lead_days_secondary"`
	LeadMinutesPrimaryLive   int             `json:"lead_minutes_primary_live"`
	LeadMinutesSecondaryLive int             `json:"lead_minutes_secondary_live"`
	TimeOfDay                string          `json:"time_of_day"`
	Toggles                  map[string]bool `json:"toggles,omitempty"`
}

// ReplanResponse reports one replan pass.
type ReplanResponse struct {
	Planned       int    `json:"planned"`
	Dropped       int    `json:"dropped"`
	Suppressed    int    `json:"suppressed"`
	Authorization string `json:"authorization"`
}
