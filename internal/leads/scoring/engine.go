// Package scoring derives a 0-100 priority score, a tier classification and a
// human-readable explanation from a lead's raw attributes. The engine is a
// pure function of its input snapshot and the clock, so every rule is covered
// by table tests.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"realtorbuddy_backend/internal/leads/repository"
)

// Factor weights, in percent. They sum to 100 so the weighted total stays
// within 0-100 without clamping.
const (
	weightBudget     = 30
	weightTimeline   = 25
	weightLender     = 20
	weightEngagement = 15
	weightMotivation = 10
)

// Snapshot is the subset of lead attributes the engine reads. Absent
// optional fields are nil; a zero budget counts as absent.
type Snapshot struct {
	Budget          float64
	Timeline        *string
	LenderStatus    repository.LenderStatus
	Motivation      *string
	ResponseRate    *float64
	LastContactDate *time.Time
}

// SubScores holds the per-factor scores, each in 0-100.
type SubScores struct {
	Budget     int `json:"budget"`
	Timeline   int `json:"timeline"`
	Lender     int `json:"lenderStatus"`
	Engagement int `json:"engagement"`
	Motivation int `json:"motivation"`
}

type Result struct {
	Score          int
	Classification repository.Tier
	Explanation    string
	SubScores      SubScores
}

// Score evaluates the snapshot at the given instant. Same snapshot, same
// now, same result.
func Score(snap Snapshot, now time.Time) Result {
	sub := SubScores{
		Budget:     budgetScore(snap.Budget),
		Timeline:   timelineScore(snap.Timeline),
		Lender:     lenderScore(snap.LenderStatus),
		Engagement: engagementScore(snap, now),
		Motivation: motivationScore(snap.Motivation),
	}

	total := int(math.Round(float64(
		sub.Budget*weightBudget+
			sub.Timeline*weightTimeline+
			sub.Lender*weightLender+
			sub.Engagement*weightEngagement+
			sub.Motivation*weightMotivation) / 100))

	tier := classify(total, sub)

	return Result{
		Score:          total,
		Classification: tier,
		Explanation:    explain(total, sub, tier, snap, now),
		SubScores:      sub,
	}
}

func budgetScore(budget float64) int {
	if budget <= 0 {
		return 0
	}
	switch {
	case budget >= 500000:
		return 100
	case budget >= 300000:
		return 80
	case budget >= 200000:
		return 60
	case budget >= 100000:
		return 40
	default:
		return 20
	}
}

func timelineScore(timeline *string) int {
	if timeline == nil || *timeline == "" {
		return 30
	}
	t := strings.ToLower(*timeline)
	switch {
	case strings.Contains(t, "immediate") || strings.Contains(t, "asap"):
		return 100
	case strings.Contains(t, "30 days") || strings.Contains(t, "1 month"):
		return 90
	case strings.Contains(t, "60 days") || strings.Contains(t, "2 month"):
		return 80
	case strings.Contains(t, "90 days") || strings.Contains(t, "3 month"):
		return 70
	case strings.Contains(t, "6 month"):
		return 50
	case strings.Contains(t, "year") || strings.Contains(t, "12 month"):
		return 30
	default:
		return 40
	}
}

func lenderScore(status repository.LenderStatus) int {
	switch status {
	case repository.LenderPreApproved:
		return 100
	case repository.LenderPreQualified:
		return 80
	case repository.LenderApplicationSubmitted:
		return 60
	case repository.LenderNotApplied:
		return 30
	default:
		return 40
	}
}

func engagementScore(snap Snapshot, now time.Time) int {
	score := 50
	if snap.LastContactDate != nil {
		days := now.Sub(*snap.LastContactDate).Hours() / 24
		switch {
		case days <= 1:
			score += 30
		case days <= 7:
			score += 20
		case days <= 30:
			score += 10
		}
	}
	if snap.ResponseRate != nil && *snap.ResponseRate > 0.5 {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}

var (
	highMotivationKeywords = []string{"relocating", "job transfer", "family", "urgent", "quick"}
	lowMotivationKeywords  = []string{"just looking", "browsing", "not sure", "maybe"}
)

func motivationScore(motivation *string) int {
	if motivation == nil || *motivation == "" {
		return 30
	}
	m := strings.ToLower(*motivation)
	score := 50
	for _, kw := range highMotivationKeywords {
		if strings.Contains(m, kw) {
			score += 10
		}
	}
	for _, kw := range lowMotivationKeywords {
		if strings.Contains(m, kw) {
			score -= 15
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func classify(total int, sub SubScores) repository.Tier {
	// Hot requires the total, timeline and lender signals together. A high
	// total alone is not enough.
	if total >= 80 && sub.Timeline >= 80 && sub.Lender >= 80 {
		return repository.TierHot
	}
	if total >= 60 || sub.Budget >= 80 || sub.Timeline >= 70 {
		return repository.TierWarm
	}
	return repository.TierNurture
}

func explain(total int, sub SubScores, tier repository.Tier, snap Snapshot, now time.Time) string {
	var reasons []string

	if sub.Budget >= 80 {
		reasons = append(reasons, fmt.Sprintf("High budget ($%s)", formatMoney(snap.Budget)))
	} else if sub.Budget <= 40 {
		reasons = append(reasons, fmt.Sprintf("Lower budget ($%s)", formatMoney(snap.Budget)))
	}

	if sub.Timeline >= 80 {
		reasons = append(reasons, fmt.Sprintf("Short timeline (%s)", derefOr(snap.Timeline, "unknown")))
	} else if sub.Timeline <= 40 {
		reasons = append(reasons, fmt.Sprintf("Long timeline (%s)", derefOr(snap.Timeline, "unknown")))
	}

	if sub.Lender >= 80 {
		reasons = append(reasons, "Pre-approved lender status")
	} else if sub.Lender <= 40 {
		reasons = append(reasons, "Unclear lender status")
	}

	if snap.LastContactDate != nil {
		days := now.Sub(*snap.LastContactDate).Hours() / 24
		if days <= 1 {
			reasons = append(reasons, fmt.Sprintf("Recent contact (%d days ago)", int(math.Round(days))))
		}
	}

	reasonText := "Standard scoring criteria"
	if len(reasons) > 0 {
		reasonText = strings.Join(reasons, ", ")
	}
	return fmt.Sprintf("%s because: %s. Score: %d/100", tier, reasonText, total)
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// formatMoney renders a dollar amount with thousands separators, e.g.
// 450000 -> "450,000".
func formatMoney(amount float64) string {
	s := strconv.FormatInt(int64(amount), 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
