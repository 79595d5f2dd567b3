/*
config.go - User-configurable reminder lead times

PURPOSE:
  Holds the lead-time preferences the planner consumes. Defaults are
  applied ONCE, at the boundary where preferences enter a planning pass
  (Normalized), not scattered per call site.

DEFAULTS:
  LeadDaysPrimary 30, LeadDaysSecondary 7, live-event leads 60/15 minutes,
  Morning delivery, every reminder class enabled.
*/
package notify

import "github.com/warp/credential-engine/ce"

// Default lead times.
const (
	DefaultLeadDaysPrimary      = 30
	DefaultLeadDaysSecondary    = 7
	DefaultLeadMinutesPrimary   = 60
	DefaultLeadMinutesSecondary = 15
)

// Preferences is the user's reminder configuration.
type Preferences struct {
	LeadDaysPrimary   int
	LeadDaysSecondary int

	// Minutes-before leads for live events.
	LeadMinutesPrimaryLive   int
	LeadMinutesSecondaryLive int

	TimeOfDay ce.TimeOfDay

	// Per-class toggles. A missing entry means enabled.
	Toggles map[Type]bool
}

// DefaultPreferences returns the out-of-the-box configuration.
func DefaultPreferences() Preferences {
	return Preferences{
		LeadDaysPrimary:          DefaultLeadDaysPrimary,
		LeadDaysSecondary:        DefaultLeadDaysSecondary,
		LeadMinutesPrimaryLive:   DefaultLeadMinutesPrimary,
		LeadMinutesSecondaryLive: DefaultLeadMinutesSecondary,
		TimeOfDay:                ce.Morning,
	}
}

// Normalized substitutes defaults for zero/invalid fields. Non-positive
// day leads fall back to the defaults; live-event leads are left as-is
// because a non-positive minute lead means "skip that entry" (planner.go).
func (p Preferences) Normalized() Preferences {
	if p.LeadDaysPrimary <= 0 {
		p.LeadDaysPrimary = DefaultLeadDaysPrimary
	}
	if p.LeadDaysSecondary <= 0 {
		p.LeadDaysSecondary = DefaultLeadDaysSecondary
	}
	switch p.TimeOfDay {
	case ce.Morning, ce.Afternoon, ce.Evening:
	default:
		p.TimeOfDay = ce.Morning
	}
	return p
}

// Enabled reports whether a reminder class is switched on.
func (p Preferences) Enabled(t Type) bool {
	if p.Toggles == nil {
		return true
	}
	on, ok := p.Toggles[t]
	if !ok {
		return true
	}
	return on
}
