package scoring

import (
	"regexp"
	"strconv"
)

const defaultDurationMinutes = 60.0

var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)(?:\b|\d)`)
	minutesRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:minutes?|mins?|m)(?:\b|\d)`)
)

// ParseDurationMinutes turns strings like "45 minutes", "1 hour 30 minutes" or "1h30m"
// into minutes. Anything unparsable yields 60.
func ParseDurationMinutes(s string) float64 {
	var (
		total   float64
		matched bool
	)
	for _, m := range hoursRe.FindAllStringSubmatch(s, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += v * 60
			matched = true
		}
	}
	for _, m := range minutesRe.FindAllStringSubmatch(s, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += v
			matched = true
		}
	}
	if !matched {
		return defaultDurationMinutes
	}
	return total
}
