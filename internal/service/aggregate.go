package service

import (
	"math"
	"sort"

	"github.com/careerforge/careerforge/internal/domain"
)

// AggregateView is the combined result of all completed judge evaluations for
// one interview. It is recomputed from the full completed set on every call,
// never incrementally.
type AggregateView struct {
	Evaluations    int                   `json:"evaluations"`
	Scores         map[string]int        `json:"scores"`
	Strengths      []string              `json:"strengths"`
	Improvements   []string              `json:"improvements"`
	Recommendation domain.Recommendation `json:"recommendation"`
}

// conservativeOrder ranks recommendations from most to least conservative.
// A tied majority vote resolves to the earliest entry here.
var conservativeOrder = []domain.Recommendation{
	domain.RecommendationNoHire,
	domain.RecommendationMaybe,
	domain.RecommendationHire,
	domain.RecommendationStrongHire,
}

// Aggregate combines completed judge evaluations into one weighted view.
// Returns nil when no completed evaluations exist.
//
// Per-category scores are weighted means rounded to the nearest integer. An
// evaluator missing a category contributes 0 to that category's numerator
// while its weight stays in the denominator.
func Aggregate(evals []domain.JudgeEvaluation) *AggregateView {
	var completed []domain.JudgeEvaluation
	for _, e := range evals {
		if e.Status == domain.JobStatusCompleted {
			completed = append(completed, e)
		}
	}
	if len(completed) == 0 {
		return nil
	}

	var totalWeight float64
	categories := map[string]bool{}
	for _, e := range completed {
		totalWeight += e.Weight
		for cat := range e.Scores {
			categories[cat] = true
		}
	}

	scores := make(map[string]int, len(categories))
	if totalWeight > 0 {
		names := make([]string, 0, len(categories))
		for cat := range categories {
			names = append(names, cat)
		}
		sort.Strings(names)
		for _, cat := range names {
			var sum float64
			for _, e := range completed {
				sum += e.Scores[cat] * e.Weight
			}
			scores[cat] = int(math.Round(sum / totalWeight))
		}
	}

	view := &AggregateView{
		Evaluations:    len(completed),
		Scores:         scores,
		Strengths:      unionStrings(completed, func(e domain.JudgeEvaluation) []string { return e.Strengths }),
		Improvements:   unionStrings(completed, func(e domain.JudgeEvaluation) []string { return e.Improvements }),
		Recommendation: majorityRecommendation(completed),
	}
	return view
}

// unionStrings collects items across evaluators in encounter order,
// deduplicating exact matches only.
func unionStrings(evals []domain.JudgeEvaluation, pick func(domain.JudgeEvaluation) []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range evals {
		for _, s := range pick(e) {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// majorityRecommendation runs an unweighted majority vote over evaluator
// recommendations. Ties resolve to the most conservative candidate.
func majorityRecommendation(evals []domain.JudgeEvaluation) domain.Recommendation {
	votes := map[domain.Recommendation]int{}
	for _, e := range evals {
		if e.Recommendation != "" {
			votes[e.Recommendation]++
		}
	}
	if len(votes) == 0 {
		return ""
	}

	max := 0
	for _, n := range votes {
		if n > max {
			max = n
		}
	}
	for _, rec := range conservativeOrder {
		if votes[rec] == max {
			return rec
		}
	}
	return ""
}
