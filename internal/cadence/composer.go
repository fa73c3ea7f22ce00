package cadence

import (
	"fmt"
	"strings"

	"realtorbuddy_backend/internal/leads/repository"
)

// Message is channel-agnostic composed content. The router decides how it
// travels.
type Message struct {
	Subject string
	Content string
}

const signOff = "Best regards,\nYour RealtorBuddy agent"

// Compose builds the follow-up message for a lead by tier. Pure: same lead,
// same tier, same snippets, same message. An unknown tier falls back to the
// Warm template.
func Compose(lead repository.Lead, tier repository.Tier, content ContentProvider) Message {
	switch tier {
	case repository.TierHot:
		return composeHot(lead)
	case repository.TierNurture:
		return composeNurture(lead, content)
	default:
		return composeWarm(lead)
	}
}

func composeHot(lead repository.Lead) Message {
	timeline := "short"
	if lead.Timeline != nil && *lead.Timeline != "" {
		timeline = *lead.Timeline
	}
	return Message{
		Subject: fmt.Sprintf("Quick follow-up on your %s home search", timeline),
		Content: fmt.Sprintf(`Hi %s,

I wanted to follow up on your home search with a %s timeline. Given your budget of $%s and %s status, I have some exciting opportunities that just came on the market.

Would you be available for a quick 10-minute call this week to discuss your priorities and show you what's available?

%s`,
			lead.FirstName, timeline, formatBudget(lead.Budget),
			strings.ToLower(string(lead.LenderStatus)), signOff),
	}
}

func composeWarm(lead repository.Lead) Message {
	return Message{
		Subject: fmt.Sprintf("Market update for %s", lead.FirstName),
		Content: fmt.Sprintf(`Hi %s,

I hope you're doing well! I wanted to share a quick market update and check in on your home search.

The market has been quite active, and I'm seeing some great opportunities in your price range. When you're ready to move forward, I'm here to help make the process smooth and successful.

Feel free to reach out if you have any questions or want to schedule a showing.

%s`, lead.FirstName, signOff),
	}
}

func composeNurture(lead repository.Lead, content ContentProvider) Message {
	return Message{
		Subject: "Monthly market insights + financing tip",
		Content: fmt.Sprintf(`Hi %s,

Here's your monthly real estate update:

Market Stats: Home prices in your area are %s this month
Financing Tip: %s
New Listings: %d homes in your budget range

I'm here whenever you're ready to take the next step in your home search. No pressure, just keeping you informed!

%s`,
			lead.FirstName, content.MarketTrend(), content.FinancingTip(),
			content.NewListingsCount(), signOff),
	}
}

func formatBudget(amount float64) string {
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
