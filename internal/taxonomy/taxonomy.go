// Package taxonomy holds the static service-level and escalation tables.
// Every table is total over the category x priority cross-product.
package taxonomy

import "github.com/spec-kit/municipal-requests/internal/domain"

// CategorySLA is the baseline resolution window in days, independent of
// priority. Used for coarse overdue checks only; deadline computation
// uses CategoryPrioritySLA.
var CategorySLA = map[domain.RequestCategory]float64{
	domain.CategoryLighting: 3,
	domain.CategoryWater:    1,
	domain.CategoryWaste:    2,
	domain.CategoryRoads:    7,
	domain.CategoryOther:    5,
}

// CategoryPrioritySLA is the precise resolution window in days for each
// category and priority pairing. Water outages run the tightest clock.
var CategoryPrioritySLA = map[domain.RequestCategory]map[domain.RequestPriority]float64{
	domain.CategoryWater: {
		domain.PriorityNormal: 1,
		domain.PriorityHigh:   0.5,
		domain.PriorityUrgent: 0.25,
	},
	domain.CategoryWaste: {
		domain.PriorityNormal: 2,
		domain.PriorityHigh:   1,
		domain.PriorityUrgent: 0.5,
	},
	domain.CategoryLighting: {
		domain.PriorityNormal: 3,
		domain.PriorityHigh:   2,
		domain.PriorityUrgent: 1,
	},
	domain.CategoryRoads: {
		domain.PriorityNormal: 7,
		domain.PriorityHigh:   5,
		domain.PriorityUrgent: 2,
	},
	domain.CategoryOther: {
		domain.PriorityNormal: 5,
		domain.PriorityHigh:   3,
		domain.PriorityUrgent: 1,
	},
}

// defaultSLADays backstops lookups for values outside the closed sets.
const defaultSLADays = 5

// SLADays returns the resolution window in days for the pairing.
func SLADays(category domain.RequestCategory, priority domain.RequestPriority) float64 {
	if byPriority, ok := CategoryPrioritySLA[category]; ok {
		if days, ok := byPriority[priority]; ok {
			return days
		}
	}
	return defaultSLADays
}

// EscalationRule describes when a priority is promoted. A zero-value
// Next means the ceiling is reached and the request never auto-escalates
// further.
type EscalationRule struct {
	HoursToNext int
	Next        domain.RequestPriority
}

// HasNext reports whether a further escalation level exists.
func (r EscalationRule) HasNext() bool {
	return r.Next != ""
}

// EscalationRules governs automatic promotion per category and current
// priority. Higher priorities escalate on shorter clocks.
var EscalationRules = map[domain.RequestCategory]map[domain.RequestPriority]EscalationRule{
	domain.CategoryWater: {
		domain.PriorityNormal: {HoursToNext: 12, Next: domain.PriorityHigh},
		domain.PriorityHigh:   {HoursToNext: 6, Next: domain.PriorityUrgent},
		domain.PriorityUrgent: {},
	},
	domain.CategoryWaste: {
		domain.PriorityNormal: {HoursToNext: 24, Next: domain.PriorityHigh},
		domain.PriorityHigh:   {HoursToNext: 12, Next: domain.PriorityUrgent},
		domain.PriorityUrgent: {},
	},
	domain.CategoryLighting: {
		domain.PriorityNormal: {HoursToNext: 72, Next: domain.PriorityHigh},
		domain.PriorityHigh:   {HoursToNext: 48, Next: domain.PriorityUrgent},
		domain.PriorityUrgent: {},
	},
	domain.CategoryRoads: {
		domain.PriorityNormal: {HoursToNext: 120, Next: domain.PriorityHigh},
		domain.PriorityHigh:   {HoursToNext: 72, Next: domain.PriorityUrgent},
		domain.PriorityUrgent: {},
	},
	domain.CategoryOther: {
		domain.PriorityNormal: {HoursToNext: 72, Next: domain.PriorityHigh},
		domain.PriorityHigh:   {HoursToNext: 48, Next: domain.PriorityUrgent},
		domain.PriorityUrgent: {},
	},
}

// RuleFor returns the escalation rule for the pairing. Unknown pairings
// return a rule with no next level.
func RuleFor(category domain.RequestCategory, priority domain.RequestPriority) EscalationRule {
	if byPriority, ok := EscalationRules[category]; ok {
		return byPriority[priority]
	}
	return EscalationRule{}
}

// TrackingCodeAlphabet excludes visually confusable characters
// (no I, O, 0, 1).
const TrackingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TrackingCodeLength is the fixed length of public tracking codes.
const TrackingCodeLength = 8
