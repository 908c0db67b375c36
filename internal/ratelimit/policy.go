// Package ratelimit implements the fixed window request limiter applied per
// route.  Counters live behind the Store interface so a single process can
// keep them in memory while several instances can share them through Redis.
package ratelimit

import (
	"regexp"
	"strconv"
	"time"
)

const (
	defaultLimit  = 10
	defaultPeriod = time.Minute
)

var policyRe = regexp.MustCompile(`^(\d+)-([HM])$`)

// Policy is a parsed "<limit>-<unit>" string such as "3-H" or "5-M".
type Policy struct {
	Raw    string
	Limit  int
	Period time.Duration
}

// ParsePolicy parses a policy string.  Unrecognised input yields the default
// of 10 requests per minute; Raw always keeps the original string so that
// counters stay keyed by what the route declared.
func ParsePolicy(s string) Policy {
	p := Policy{Raw: s, Limit: defaultLimit, Period: defaultPeriod}
	m := policyRe.FindStringSubmatch(s)
	if m == nil {
		return p
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return p
	}
	p.Limit = n
	if m[2] == "H" {
		p.Period = time.Hour
	} else {
		p.Period = time.Minute
	}
	return p
}
