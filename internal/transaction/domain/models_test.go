package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromProvider(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Status
	}{
		{name: "created maps to pending", raw: "created", want: StatusPending},
		{name: "authorized", raw: "authorized", want: StatusAuthorized},
		{name: "captured maps to success", raw: "captured", want: StatusSuccess},
		{name: "failed", raw: "failed", want: StatusFailed},
		{name: "refunded", raw: "refunded", want: StatusRefunded},
		{name: "surrounding whitespace trimmed", raw: "  captured ", want: StatusSuccess},
		{name: "unrecognized passes through verbatim", raw: "weird_status", want: Status("weird_status")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFromProvider(tc.raw))
		})
	}
}
