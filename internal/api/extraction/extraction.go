// Package extraction pulls trip parameters (dates, length, destination) out of a chat message.
package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const isoDate = "2006-01-02"

var (
	dayMonthYear = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	yearMonthDay = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayCountEN   = regexp.MustCompile(`(?i)(\d+)\s*[-\s]?\s*days?\b`)
	dayCountKO   = regexp.MustCompile(`(\d+)\s*일`)
	destination  = regexp.MustCompile(`\b(?:to|in|at|visit|visiting|around)\s+((?:[A-Z][\p{L}'-]*)(?:\s+[A-Z][\p{L}'-]*)*)`)
)

// TravelDates returns the first two dates found in the message as an ISO range.
// dd/mm/yyyy and dd-mm-yyyy are read day first; yyyy-mm-dd is also accepted.
func TravelDates(message string) (*types.TravelDates, bool) {
	dates := findDates(message)
	if len(dates) < 2 {
		return nil, false
	}
	start, end := dates[0], dates[1]
	if end.Before(start) {
		start, end = end, start
	}
	return &types.TravelDates{Start: start.Format(isoDate), End: end.Format(isoDate)}, true
}

type match struct {
	pos  int
	date time.Time
}

func findDates(message string) []time.Time {
	var found []match
	for _, m := range dayMonthYear.FindAllStringSubmatchIndex(message, -1) {
		d, _ := strconv.Atoi(message[m[2]:m[3]])
		mo, _ := strconv.Atoi(message[m[4]:m[5]])
		y, _ := strconv.Atoi(message[m[6]:m[7]])
		if t, ok := validDate(y, mo, d); ok {
			found = append(found, match{m[0], t})
		}
	}
	for _, m := range yearMonthDay.FindAllStringSubmatchIndex(message, -1) {
		y, _ := strconv.Atoi(message[m[2]:m[3]])
		mo, _ := strconv.Atoi(message[m[4]:m[5]])
		d, _ := strconv.Atoi(message[m[6]:m[7]])
		if t, ok := validDate(y, mo, d); ok {
			found = append(found, match{m[0], t})
		}
	}
	// order of appearance
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	out := make([]time.Time, len(found))
	for i, f := range found {
		out[i] = f.date
	}
	return out
}

func validDate(y, m, d int) (time.Time, bool) {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// InclusiveDays counts calendar days of a range, both ends included.
func InclusiveDays(dates *types.TravelDates) (int, bool) {
	if !dates.Complete() {
		return 0, false
	}
	start, err := time.Parse(isoDate, dates.Start)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(isoDate, dates.End)
	if err != nil || end.Before(start) {
		return 0, false
	}
	return int(end.Sub(start).Hours()/24) + 1, true
}

// DayCounter resolves the trip length of a turn.
type DayCounter struct {
	DefaultDays int
	MaxDays     int
}

// NumDays prefers a date range in the message, then an explicit "N days" / "N일",
// then the session's travel dates, then the default. The result is clamped to [1, MaxDays].
func (c DayCounter) NumDays(message string, session *types.TravelDates) int {
	n := c.DefaultDays
	if dates, ok := TravelDates(message); ok {
		n, _ = InclusiveDays(dates)
	} else if v, ok := explicitDays(message); ok {
		n = v
	} else if v, ok := InclusiveDays(session); ok {
		n = v
	}
	if n < 1 {
		n = 1
	}
	if c.MaxDays > 0 && n > c.MaxDays {
		n = c.MaxDays
	}
	return n
}

func explicitDays(message string) (int, bool) {
	if m := dayCountEN.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	for _, m := range dayCountKO.FindAllStringSubmatchIndex(message, -1) {
		// "11월 22일" is a calendar day, not a trip length.
		if strings.HasSuffix(strings.TrimRight(message[:m[0]], " "), "월") {
			continue
		}
		if n, err := strconv.Atoi(message[m[2]:m[3]]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

var calendarWords = map[string]struct{}{
	"January": {}, "February": {}, "March": {}, "April": {}, "May": {}, "June": {}, "July": {},
	"August": {}, "September": {}, "October": {}, "November": {}, "December": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {}, "Saturday": {}, "Sunday": {},
}

// Destination finds a capitalized place name after "to", "in", "at" or "visit".
// Leading month and weekday names are not part of a place name.
func Destination(message string) (string, bool) {
	for _, m := range destination.FindAllStringSubmatch(message, -1) {
		words := strings.Fields(m[1])
		for len(words) > 0 {
			if _, ok := calendarWords[words[0]]; !ok {
				break
			}
			words = words[1:]
		}
		if len(words) > 0 {
			return StripCountry(strings.Join(words, " ")), true
		}
	}
	return "", false
}

// StripCountry drops a trailing ", Country" qualifier: "Seoul, South Korea" -> "Seoul".
func StripCountry(place string) string {
	if i := strings.Index(place, ","); i >= 0 {
		place = place[:i]
	}
	return strings.TrimSpace(place)
}

// Apply updates the session context with what the message states for this turn.
func Apply(message string, sc *types.SessionContext) {
	if dest, ok := Destination(message); ok {
		sc.Destination = dest
	}
	if dates, ok := TravelDates(message); ok {
		sc.TravelDates = dates
	}
}
