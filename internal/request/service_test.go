package request

import "testing"

func TestTransitionAllowed(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"draft to open", StatusDraft, StatusOpen, true},
		{"open to redeemed", StatusOpen, StatusRedeemed, true},
		{"open to expired", StatusOpen, StatusExpired, true},
		{"redeemed to quoted", StatusRedeemed, StatusQuoted, true},
		{"quoted to accepted", StatusQuoted, StatusAccepted, true},
		{"quoted to declined", StatusQuoted, StatusDeclined, true},
		{"draft to accepted skips lifecycle", StatusDraft, StatusAccepted, false},
		{"open back to draft", StatusOpen, StatusDraft, false},
		{"accepted is terminal", StatusAccepted, StatusExpired, false},
		{"declined is terminal", StatusDeclined, StatusOpen, false},
		{"expired is terminal", StatusExpired, StatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := transitionAllowed(tc.from, tc.to); got != tc.want {
				t.Fatalf("transitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}
