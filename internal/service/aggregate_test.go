package service

import (
	"testing"

	"github.com/careerforge/careerforge/internal/domain"
)

func completedEval(judge string, weight float64, scores domain.ScoreMap, rec domain.Recommendation, strengths ...string) domain.JudgeEvaluation {
	return domain.JudgeEvaluation{
		ID:             "eval-" + judge,
		InterviewID:    "interview-1",
		JudgeID:        judge,
		Status:         domain.JobStatusCompleted,
		Weight:         weight,
		Scores:         scores,
		Strengths:      strengths,
		Recommendation: rec,
	}
}

func TestAggregate_Empty(t *testing.T) {
	if view := Aggregate(nil); view != nil {
		t.Errorf("expected nil aggregate for no evaluations, got %+v", view)
	}

	pending := []domain.JudgeEvaluation{
		{ID: "e1", Status: domain.JobStatusPending},
		{ID: "e2", Status: domain.JobStatusFailed},
	}
	if view := Aggregate(pending); view != nil {
		t.Errorf("expected nil aggregate when no evaluation is completed, got %+v", view)
	}
}

func TestAggregate_WeightedScores(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		completedEval("j1", 1, domain.ScoreMap{"technical": 60}, domain.RecommendationHire),
		completedEval("j2", 2, domain.ScoreMap{"technical": 90}, domain.RecommendationHire),
	}

	view := Aggregate(evals)
	if view == nil {
		t.Fatal("expected non-nil aggregate")
	}
	if view.Evaluations != 2 {
		t.Errorf("expected 2 evaluations, got %d", view.Evaluations)
	}
	// (60*1 + 90*2) / 3 = 80
	if got := view.Scores["technical"]; got != 80 {
		t.Errorf("expected weighted technical score 80, got %d", got)
	}
}

func TestAggregate_MissingCategoryCountsAsZero(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		completedEval("j1", 1, domain.ScoreMap{"technical": 80, "communication": 100}, domain.RecommendationHire),
		completedEval("j2", 1, domain.ScoreMap{"technical": 60}, domain.RecommendationHire),
	}

	view := Aggregate(evals)
	if view == nil {
		t.Fatal("expected non-nil aggregate")
	}
	// j2 scored no communication; its weight stays in the denominator.
	// (100*1 + 0*1) / 2 = 50
	if got := view.Scores["communication"]; got != 50 {
		t.Errorf("expected communication score 50, got %d", got)
	}
	if got := view.Scores["technical"]; got != 70 {
		t.Errorf("expected technical score 70, got %d", got)
	}
}

func TestAggregate_RoundsToNearest(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		completedEval("j1", 1, domain.ScoreMap{"technical": 70}, domain.RecommendationHire),
		completedEval("j2", 1, domain.ScoreMap{"technical": 75}, domain.RecommendationHire),
	}

	view := Aggregate(evals)
	// 72.5 rounds to 73
	if got := view.Scores["technical"]; got != 73 {
		t.Errorf("expected rounded score 73, got %d", got)
	}
}

func TestAggregate_StrengthsUnion(t *testing.T) {
	evals := []domain.JudgeEvaluation{
		completedEval("j1", 1, nil, domain.RecommendationHire, "clear communication", "strong fundamentals"),
		completedEval("j2", 1, nil, domain.RecommendationHire, "strong fundamentals", "good pacing"),
	}

	view := Aggregate(evals)
	want := []string{"clear communication", "strong fundamentals", "good pacing"}
	if len(view.Strengths) != len(want) {
		t.Fatalf("expected %d strengths, got %v", len(want), view.Strengths)
	}
	for i, s := range want {
		if view.Strengths[i] != s {
			t.Errorf("strength %d: expected %q, got %q", i, s, view.Strengths[i])
		}
	}
}

func TestMajorityRecommendation(t *testing.T) {
	tests := []struct {
		name string
		recs []domain.Recommendation
		want domain.Recommendation
	}{
		{
			name: "clear majority",
			recs: []domain.Recommendation{domain.RecommendationHire, domain.RecommendationHire, domain.RecommendationNoHire},
			want: domain.RecommendationHire,
		},
		{
			name: "tie resolves conservatively",
			recs: []domain.Recommendation{domain.RecommendationStrongHire, domain.RecommendationNoHire},
			want: domain.RecommendationNoHire,
		},
		{
			name: "three way tie",
			recs: []domain.Recommendation{domain.RecommendationHire, domain.RecommendationMaybe, domain.RecommendationStrongHire},
			want: domain.RecommendationMaybe,
		},
		{
			name: "single vote",
			recs: []domain.Recommendation{domain.RecommendationStrongHire},
			want: domain.RecommendationStrongHire,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var evals []domain.JudgeEvaluation
			for i, rec := range tc.recs {
				evals = append(evals, completedEval(string(rune('a'+i)), 1, nil, rec))
			}
			view := Aggregate(evals)
			if view.Recommendation != tc.want {
				t.Errorf("expected recommendation %q, got %q", tc.want, view.Recommendation)
			}
		})
	}
}

func TestAggregate_VoteIsUnweighted(t *testing.T) {
	// A heavy no-hire vote must not outvote two light hire votes.
	evals := []domain.JudgeEvaluation{
		completedEval("j1", 0.5, nil, domain.RecommendationHire),
		completedEval("j2", 0.5, nil, domain.RecommendationHire),
		completedEval("j3", 2, nil, domain.RecommendationNoHire),
	}

	view := Aggregate(evals)
	if view.Recommendation != domain.RecommendationHire {
		t.Errorf("expected unweighted majority hire, got %q", view.Recommendation)
	}
}
