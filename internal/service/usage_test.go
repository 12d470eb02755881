package service

import (
	"testing"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
)

func TestCheckLimit_FreePlan(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	plan := PlanByID("free")

	tests := []struct {
		name        string
		used        int
		wantAllowed bool
		wantRemain  int
	}{
		{name: "unused", used: 0, wantAllowed: true, wantRemain: 3},
		{name: "under limit", used: 2, wantAllowed: true, wantRemain: 1},
		{name: "at limit", used: 3, wantAllowed: false, wantRemain: 0},
		{name: "over limit", used: 5, wantAllowed: false, wantRemain: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			usage := domain.UsageCounter{Interviews: tc.used, Month: domain.MonthKey(now)}
			result := CheckLimit(plan, usage, domain.FeatureInterviews, now)
			if result.Allowed != tc.wantAllowed {
				t.Errorf("expected allowed=%v, got %v", tc.wantAllowed, result.Allowed)
			}
			if result.Limit != 3 {
				t.Errorf("expected limit 3, got %d", result.Limit)
			}
			if result.Remaining != tc.wantRemain {
				t.Errorf("expected remaining %d, got %d", tc.wantRemain, result.Remaining)
			}
		})
	}
}

func TestCheckLimit_StaleMonthResets(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	usage := domain.UsageCounter{Interviews: 3, Month: "2025-06"}

	result := CheckLimit(PlanByID("free"), usage, domain.FeatureInterviews, now)
	if !result.Allowed {
		t.Error("expected a fresh month to reset consumed quota")
	}
	if result.Used != 0 {
		t.Errorf("expected used 0 after month rollover, got %d", result.Used)
	}

	// The caller's copy is untouched: the check is read-only.
	if usage.Interviews != 3 {
		t.Errorf("expected stored counter to remain 3, got %d", usage.Interviews)
	}
}

func TestCheckLimit_Unlimited(t *testing.T) {
	now := time.Now()
	usage := domain.UsageCounter{ATSChecks: 10000, Month: domain.MonthKey(now)}

	result := CheckLimit(PlanByID("enterprise"), usage, domain.FeatureATSChecks, now)
	if !result.Allowed {
		t.Error("expected enterprise plan to always allow")
	}
	if result.Limit != Unlimited {
		t.Errorf("expected limit %d, got %d", Unlimited, result.Limit)
	}
}

func TestCheckLimit_UnmappedFeature(t *testing.T) {
	now := time.Now()
	result := CheckLimit(PlanByID("free"), domain.UsageCounter{}, domain.Feature("exports"), now)
	if !result.Allowed {
		t.Error("expected a feature without a quota to be allowed")
	}
}

func TestPlanByID_UnknownFallsBackToFree(t *testing.T) {
	plan := PlanByID("legacy-gold")
	if plan.ID != "free" {
		t.Errorf("expected free plan fallback, got %q", plan.ID)
	}
}
