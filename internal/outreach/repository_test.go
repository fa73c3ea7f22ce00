package outreach

import (
	"strings"
	"testing"
)

func TestEngagementCountIncludesBothDirections(t *testing.T) {
	query := strings.ToLower(countByLeadSinceQuery)

	if strings.Contains(query, "direction") {
		t.Fatal("engagement count must include inbound replies, not just outbound sends")
	}
	for _, fragment := range []string{"where user_id = $1", "group by lead_id"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected query fragment %q to be present", fragment)
		}
	}
}
