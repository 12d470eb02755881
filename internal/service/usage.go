package service

import (
	"time"

	"github.com/careerforge/careerforge/internal/domain"
)

// Unlimited is the sentinel quota meaning a feature has no monthly cap.
const Unlimited = -1

// Plan defines the monthly quota per feature. Plan management is external;
// this catalog mirrors the billing system's plan ids.
type Plan struct {
	ID     string
	Name   string
	Limits map[domain.Feature]int
}

var plans = map[string]Plan{
	"free": {
		ID:   "free",
		Name: "Free",
		Limits: map[domain.Feature]int{
			domain.FeatureInterviews:        3,
			domain.FeatureATSChecks:         3,
			domain.FeatureResumeGenerations: 5,
		},
	},
	"pro": {
		ID:   "pro",
		Name: "Pro",
		Limits: map[domain.Feature]int{
			domain.FeatureInterviews:        50,
			domain.FeatureATSChecks:         100,
			domain.FeatureResumeGenerations: 100,
		},
	},
	"enterprise": {
		ID:   "enterprise",
		Name: "Enterprise",
		Limits: map[domain.Feature]int{
			domain.FeatureInterviews:        Unlimited,
			domain.FeatureATSChecks:         Unlimited,
			domain.FeatureResumeGenerations: Unlimited,
		},
	},
}

// PlanByID returns the plan for an id, falling back to the free plan for
// unknown ids so a stale plan reference never blocks a user entirely.
func PlanByID(id string) Plan {
	if p, ok := plans[id]; ok {
		return p
	}
	return plans["free"]
}

// LimitResult is the outcome of a quota check.
type LimitResult struct {
	Allowed   bool `json:"allowed"`
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
}

// CheckLimit evaluates a feature quota against current usage. The check is
// read-only: the stored counter is not mutated, but a stale month is treated
// as zero usage. A feature without a configured quota is always allowed.
func CheckLimit(plan Plan, usage domain.UsageCounter, feature domain.Feature, now time.Time) LimitResult {
	usage.Normalize(now)

	limit, ok := plan.Limits[feature]
	if !ok || limit == Unlimited {
		return LimitResult{Allowed: true, Limit: Unlimited, Used: usage.Get(feature), Remaining: Unlimited}
	}

	used := usage.Get(feature)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   used < limit,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
	}
}
