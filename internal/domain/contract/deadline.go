// Package contract defines the contract aggregate, its calendar arithmetic
// (period parsing and cancellation deadlines), the trash lifecycle rules and
// the repository contracts consumed by the application layer.
package contract

import "time"

// Date layouts used across the service.
const (
	// DateLayout is the storage and key layout of civil dates.
	DateLayout = "2006-01-02"
	// DisplayDateLayout is the layout used in reminder messages.
	DisplayDateLayout = "02.01.2006"
)

// DateOf strips the clock from t, returning midnight UTC of t's calendar day
// as observed in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for midnight UTC on the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CalculateDeadline returns the last day on which a cancellation notice is
// still effective: endDate minus the cancellation period.  The second return
// value is false when endDate is nil or period does not parse.
func CalculateDeadline(endDate *time.Time, period string) (time.Time, bool) {
	if endDate == nil {
		return time.Time{}, false
	}
	p, ok := ParsePeriod(period)
	if !ok {
		return time.Time{}, false
	}
	return SubtractPeriod(DateOf(*endDate), p), true
}

// SubtractPeriod moves d back by p.  Month subtraction never lands past the
// end of the target month: 2026-03-31 minus one month is 2026-02-28.
func SubtractPeriod(d time.Time, p Period) time.Time {
	switch p.Unit {
	case UnitMonth:
		return subtractMonths(d, p.Value)
	case UnitYear:
		return d.AddDate(-p.Value, 0, 0)
	case UnitWeek:
		return d.AddDate(0, 0, -7*p.Value)
	default:
		return d.AddDate(0, 0, -p.Value)
	}
}

// subtractMonths relies on AddDate normalisation and then undoes the
// roll-over into the following month that happens when the target month is
// shorter than the original day of month.
func subtractMonths(d time.Time, months int) time.Time {
	origDay := d.Day()
	res := d.AddDate(0, -months, 0)
	if res.Day() > origDay || (origDay > 28 && res.Day() < origDay) {
		// day 0 normalises to the last day of the previous month
		res = time.Date(res.Year(), res.Month(), 0, 0, 0, 0, 0, res.Location())
	}
	return res
}

// FormatDeadline renders d for human-facing messages (dd.mm.yyyy).
func FormatDeadline(d time.Time) string {
	return d.Format(DisplayDateLayout)
}

//Personal.AI order the ending
