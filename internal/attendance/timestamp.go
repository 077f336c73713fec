package attendance

import (
	"strings"
	"time"
)

// CanonicalLayout is the normalized attendance time format. Values in this
// layout sort lexicographically in chronological order.
const CanonicalLayout = "2006-01-02 15:04:05"

var monthAbbrev = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// NormalizeTimestamp rewrites "M/D/YYYY H:mm[:ss]" or "D/Mon/YYYY H:mm[:ss]"
// into CanonicalLayout. Input it does not recognise, including input that is
// already canonical, is returned unchanged.
func NormalizeTimestamp(input string) string {
	tokens := strings.Split(strings.TrimSpace(input), " ")
	if len(tokens) != 2 {
		return input
	}
	datePart, timePart := tokens[0], tokens[1]

	parts := strings.Split(datePart, "/")
	if len(parts) != 3 {
		return input
	}
	var month, day string
	if m, ok := monthAbbrev[strings.ToLower(parts[1])]; ok {
		day, month = parts[0], m
	} else if isDigits(parts[1]) {
		month, day = parts[0], parts[1]
	} else {
		return input
	}
	year := parts[2]

	clock := strings.Split(timePart, ":")
	switch len(clock) {
	case 2:
		clock = append(clock, "00")
	case 3:
	default:
		return input
	}
	for _, c := range clock {
		if !isDigits(c) {
			return input
		}
	}

	var b strings.Builder
	b.Grow(len(CanonicalLayout))
	b.WriteString(year)
	b.WriteByte('-')
	b.WriteString(pad2(month))
	b.WriteByte('-')
	b.WriteString(pad2(day))
	b.WriteByte(' ')
	b.WriteString(pad2(clock[0]))
	b.WriteByte(':')
	b.WriteString(pad2(clock[1]))
	b.WriteByte(':')
	b.WriteString(pad2(clock[2]))
	return b.String()
}

// ParseTimestamp normalizes input and reads it in loc. ok is false when the
// result is not a valid CanonicalLayout time.
func ParseTimestamp(input string, loc *time.Location) (t time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(CanonicalLayout, NormalizeTimestamp(input), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func pad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
