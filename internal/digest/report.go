package digest

import (
	"fmt"
	"sort"
	"strings"

	"realtorbuddy_backend/internal/leads/repository"
)

// ROI summarizes the trailing month's automation impact.
type ROI struct {
	MessagesSent  int    `json:"messagesSent"`
	DealsClosed   int    `json:"dealsClosed"`
	HoursSaved    int    `json:"hoursSaved"`
	RevenueImpact int    `json:"revenueImpact"`
	Efficiency    string `json:"efficiency"`
}

// RankedLead pairs a lead with its weekly engagement factor.
type RankedLead struct {
	Lead       repository.Lead
	Engagement float64
}

var tierPriority = map[repository.Tier]int{
	repository.TierHot:     3,
	repository.TierWarm:    2,
	repository.TierNurture: 1,
}

// engagementFactor maps the week's interaction count to a 0-1 multiplier.
func engagementFactor(interactions int) float64 {
	switch {
	case interactions >= 5:
		return 1.0
	case interactions >= 3:
		return 0.8
	case interactions >= 1:
		return 0.6
	default:
		return 0.3
	}
}

// rankTop5 orders leads by tier first, then by score weighted by engagement,
// and keeps at most five.
func rankTop5(leads []RankedLead) []RankedLead {
	ranked := make([]RankedLead, len(leads))
	copy(ranked, leads)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := tierPriority[ranked[i].Lead.Classification], tierPriority[ranked[j].Lead.Classification]
		if pi != pj {
			return pi > pj
		}
		return float64(ranked[i].Lead.Score)*ranked[i].Engagement > float64(ranked[j].Lead.Score)*ranked[j].Engagement
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	return ranked
}

func computeROI(messages, deals int) ROI {
	efficiency := "0"
	if deals > 0 && messages > 0 {
		efficiency = fmt.Sprintf("%.1f", float64(deals)/float64(messages)*100)
	}
	return ROI{
		MessagesSent:  messages,
		DealsClosed:   deals,
		HoursSaved:    (messages*5 + 30) / 60, // 5 minutes saved per automated message
		RevenueImpact: deals * 10000,
		Efficiency:    efficiency,
	}
}

func tierEmoji(tier repository.Tier) string {
	switch tier {
	case repository.TierHot:
		return "🔥"
	case repository.TierWarm:
		return "⚡"
	default:
		return "🌱"
	}
}

// buildReport renders the WhatsApp-formatted daily report.
func buildReport(top5 []RankedLead, roi ROI, date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 *Daily Top 5 Leads - %s*\n\n", date)

	if len(top5) == 0 {
		b.WriteString("📊 *No priority leads today*\n\n")
		b.WriteString("Focus on your nurture pool and consider running some lead generation campaigns.\n\n")
	} else {
		for i, rl := range top5 {
			lead := rl.Lead
			budget := "Unknown"
			if lead.Budget > 0 {
				budget = "$" + formatThousands(lead.Budget)
			}
			tier := string(lead.Classification)
			if tier == "" {
				tier = string(lead.Status)
			}
			fmt.Fprintf(&b, "%d. %s *%s* (%s)\n", i+1, tierEmoji(lead.Classification), lead.FullName(), tier)
			fmt.Fprintf(&b, "   Score: %d/100 | Budget: %s\n", lead.Score, budget)
			if lead.ExplainabilityCard != nil && *lead.ExplainabilityCard != "" {
				fmt.Fprintf(&b, "   %s\n", *lead.ExplainabilityCard)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "📈 *This Month's Impact:*\n")
	fmt.Fprintf(&b, "• %d deals closed\n", roi.DealsClosed)
	fmt.Fprintf(&b, "• %d hours saved\n", roi.HoursSaved)
	fmt.Fprintf(&b, "• $%s revenue impact\n", formatThousands(float64(roi.RevenueImpact)))
	fmt.Fprintf(&b, "• %s%% conversion efficiency\n\n", roi.Efficiency)

	b.WriteString("🎯 *Today's Action Items:*\n")
	for _, rl := range top5 {
		if rl.Lead.Classification == repository.TierHot {
			b.WriteString("• Review and approve Hot lead draft messages\n")
			break
		}
	}
	b.WriteString("• Follow up on any pending showings\n")
	b.WriteString("• Check nurture pool for re-engagement opportunities\n\n")

	b.WriteString("💡 *Pro Tip:* Hot leads should be contacted within 2 hours for best results.\n\n")
	b.WriteString("_Generated by RealtorBuddy Analytics_")

	return b.String()
}

func formatThousands(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
