package cadence

import (
	"strings"
	"testing"

	"realtorbuddy_backend/internal/leads/repository"
)

func sampleLead() repository.Lead {
	timeline := "30 days"
	return repository.Lead{
		FirstName:    "Adriana",
		Budget:       450000,
		Timeline:     &timeline,
		LenderStatus: repository.LenderPreApproved,
	}
}

func TestComposeHot(t *testing.T) {
	msg := Compose(sampleLead(), repository.TierHot, fixedContent{})

	if msg.Subject != "Quick follow-up on your 30 days home search" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{
		"Hi Adriana,",
		"$450,000",
		"pre-approved status",
		"10-minute call",
	} {
		if !strings.Contains(msg.Content, want) {
			t.Errorf("hot content missing %q:\n%s", want, msg.Content)
		}
	}
}

func TestComposeHotMissingTimeline(t *testing.T) {
	lead := sampleLead()
	lead.Timeline = nil
	msg := Compose(lead, repository.TierHot, fixedContent{})
	if msg.Subject != "Quick follow-up on your short home search" {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestComposeWarm(t *testing.T) {
	msg := Compose(sampleLead(), repository.TierWarm, fixedContent{})
	if msg.Subject != "Market update for Adriana" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Content, "market update") {
		t.Fatalf("warm content:\n%s", msg.Content)
	}
}

func TestComposeNurtureUsesProvider(t *testing.T) {
	msg := Compose(sampleLead(), repository.TierNurture, fixedContent{})
	if msg.Subject != "Monthly market insights + financing tip" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	for _, want := range []string{
		"are stable this month",
		"Consider getting pre-approved before shopping",
		"4 homes in your budget range",
	} {
		if !strings.Contains(msg.Content, want) {
			t.Errorf("nurture content missing %q:\n%s", want, msg.Content)
		}
	}
}

func TestComposeIsPure(t *testing.T) {
	lead := sampleLead()
	for _, tier := range repository.Tiers {
		first := Compose(lead, tier, fixedContent{})
		second := Compose(lead, tier, fixedContent{})
		if first != second {
			t.Errorf("%s: compose not deterministic", tier)
		}
	}
}

func TestUnknownTierFallsBackToWarm(t *testing.T) {
	msg := Compose(sampleLead(), repository.Tier("Mystery"), fixedContent{})
	if msg.Subject != "Market update for Adriana" {
		t.Fatalf("fallback subject = %q", msg.Subject)
	}
}

func TestRandomContentStaysInDocumentedSets(t *testing.T) {
	var provider RandomContent
	trends := map[string]bool{"up 2%": true, "down 1%": true, "stable": true}
	for range 50 {
		if !trends[provider.MarketTrend()] {
			t.Fatalf("trend outside documented set")
		}
		if tip := provider.FinancingTip(); tip == "" {
			t.Fatalf("empty financing tip")
		}
		if n := provider.NewListingsCount(); n < 1 || n > 10 {
			t.Fatalf("listing count %d outside 1-10", n)
		}
	}
}
