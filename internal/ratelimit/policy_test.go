package ratelimit

import (
	"testing"
	"time"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in     string
		limit  int
		period time.Duration
	}{
		{"3-H", 3, time.Hour},
		{"5-M", 5, time.Minute},
		{"100-H", 100, time.Hour},
		{"", 10, time.Minute},
		{"3-h", 10, time.Minute},
		{"3-D", 10, time.Minute},
		{"-H", 10, time.Minute},
		{" 3-H", 10, time.Minute},
	}
	for _, tt := range tests {
		p := ParsePolicy(tt.in)
		if p.Limit != tt.limit || p.Period != tt.period {
			t.Errorf("ParsePolicy(%q) = %d/%s, want %d/%s", tt.in, p.Limit, p.Period, tt.limit, tt.period)
		}
		if p.Raw != tt.in {
			t.Errorf("ParsePolicy(%q).Raw = %q", tt.in, p.Raw)
		}
	}
}
