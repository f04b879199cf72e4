// Package sla implements the deadline, compliance and escalation
// computations for service requests. All functions are pure; callers
// supply the evaluation time.
package sla

import (
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/taxonomy"
)

// Deadline computes the resolution deadline for a request created at the
// given time with the given classification.
func Deadline(createdAt time.Time, category domain.RequestCategory, priority domain.RequestPriority) time.Time {
	days := taxonomy.SLADays(category, priority)
	return createdAt.Add(window(days))
}

// Evaluate returns the compliance state of a request at the given time.
// Closed requests are judged by their close time against the deadline.
// Open requests become at_risk inside the last quarter of the allotted
// window and breached once the deadline passes.
func Evaluate(req *domain.ServiceRequest, now time.Time) domain.SLAStatus {
	deadline := effectiveDeadline(req)

	if req.Closed() {
		if req.ClosedAt == nil {
			return domain.SLAMet
		}
		if req.ClosedAt.After(deadline) {
			return domain.SLABreached
		}
		return domain.SLAMet
	}

	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return domain.SLABreached
	}
	if remaining <= window(taxonomy.SLADays(req.Category, req.Priority))/4 {
		return domain.SLAAtRisk
	}
	return domain.SLAMet
}

// effectiveDeadline prefers the stored deadline; it is pinned at the
// classification in effect when first computed and is not re-derived on
// later priority changes.
func effectiveDeadline(req *domain.ServiceRequest) time.Time {
	if req.SLADeadline != nil {
		return *req.SLADeadline
	}
	return Deadline(req.CreatedAt, req.Category, req.Priority)
}

func window(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}

// ComplianceRate returns the percentage of closed requests that met
// their deadline, rounded to the nearest integer. With no closed
// requests the rate is 100.
func ComplianceRate(requests []domain.ServiceRequest) int {
	closed, met := 0, 0
	for i := range requests {
		if !requests[i].Closed() {
			continue
		}
		closed++
		if requests[i].SLAStatus == domain.SLAMet {
			met++
		}
	}
	if closed == 0 {
		return 100
	}
	return roundPercent(met, closed)
}

// CategoryCompliance aggregates closed-request outcomes for one category.
type CategoryCompliance struct {
	Total    int
	Met      int
	Breached int
	Rate     int
}

// ComplianceByCategory breaks the compliance rate down per category.
// Categories with no closed requests report a rate of 100.
func ComplianceByCategory(requests []domain.ServiceRequest) map[domain.RequestCategory]CategoryCompliance {
	result := make(map[domain.RequestCategory]CategoryCompliance, len(domain.Categories))
	for _, category := range domain.Categories {
		result[category] = CategoryCompliance{Rate: 100}
	}
	for i := range requests {
		req := &requests[i]
		if !req.Closed() {
			continue
		}
		entry := result[req.Category]
		entry.Total++
		switch req.SLAStatus {
		case domain.SLAMet:
			entry.Met++
		case domain.SLABreached:
			entry.Breached++
		}
		result[req.Category] = entry
	}
	for category, entry := range result {
		if entry.Total > 0 {
			entry.Rate = roundPercent(entry.Met, entry.Total)
			result[category] = entry
		}
	}
	return result
}

func roundPercent(part, total int) int {
	return int(float64(part)/float64(total)*100 + 0.5)
}
