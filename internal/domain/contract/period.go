package contract

import (
	"regexp"
	"strconv"
	"strings"
)

// PeriodUnit is the normalised (singular) unit of a Period.
type PeriodUnit string

const (
	UnitDay   PeriodUnit = "day"
	UnitWeek  PeriodUnit = "week"
	UnitMonth PeriodUnit = "month"
	UnitYear  PeriodUnit = "year"
)

// Period is a parsed human-readable duration such as "3 months".
type Period struct {
	Value int
	Unit  PeriodUnit
}

var periodPattern = regexp.MustCompile(`(?i)^(\d+)\s+(day|days|week|weeks|month|months|year|years)$`)

// ParsePeriod parses strings like "14 days", "1 Month" or " 2 years ".
// The second return value is false for empty, malformed or unknown-unit
// input; callers treat that as "no deadline can be computed".
func ParsePeriod(s string) (Period, bool) {
	m := periodPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Period{}, false
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		// digit runs too long for int
		return Period{}, false
	}
	unit := strings.TrimSuffix(strings.ToLower(m[2]), "s")
	return Period{Value: value, Unit: PeriodUnit(unit)}, true
}

// String renders the period back in its canonical form ("3 months").
func (p Period) String() string {
	unit := string(p.Unit)
	if p.Value != 1 {
		unit += "s"
	}
	return strconv.Itoa(p.Value) + " " + unit
}

//Personal.AI order the ending
