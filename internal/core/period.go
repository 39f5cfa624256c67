package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// periodNamespace scopes the SHA1 ids generated for report periods.
var periodNamespace = uuid.MustParse("6f1c7c1e-4a0e-5d7b-9a55-2f0f3b2f7a10")

var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

var monthNames = [...]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// ParseDate accepts the date formats found in report datasets.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MonthName returns the lower-case Russian name of a month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// PeriodTitle names a report after its date range:
// "март 2018", "2018: февраль - март" or "декабрь 2017 - январь 2018".
func PeriodTitle(from, to time.Time) string {
	switch {
	case from.Month() != to.Month() && from.Year() == to.Year():
		return fmt.Sprintf("%d: %s - %s", from.Year(), MonthName(from.Month()), MonthName(to.Month()))
	case from.Year() != to.Year():
		return fmt.Sprintf("%s %d - %s %d", MonthName(from.Month()), from.Year(), MonthName(to.Month()), to.Year())
	default:
		return fmt.Sprintf("%s %d", MonthName(from.Month()), from.Year())
	}
}

// Normalize fills in a missing title from the time period. Periods that
// already carry a title are returned unchanged.
func Normalize(p ReportPeriod) (ReportPeriod, error) {
	if strings.TrimSpace(p.Title) != "" {
		return p, nil
	}
	from, err := ParseDate(p.TimePeriod.From)
	if err != nil {
		return p, fmt.Errorf("derive title: %w", err)
	}
	to, err := ParseDate(p.TimePeriod.To)
	if err != nil {
		return p, fmt.Errorf("derive title: %w", err)
	}
	p.Title = PeriodTitle(from, to)
	return p, nil
}

// AssignIDs gives every period without an id a stable one derived from its
// title and time period. Identical periods get an occurrence suffix so ids
// stay unique within the dataset.
func AssignIDs(periods []ReportPeriod) []ReportPeriod {
	out := make([]ReportPeriod, len(periods))
	seen := make(map[string]int, len(periods))
	for _, p := range periods {
		if p.ID != "" {
			seen[p.ID]++
		}
	}
	for i, p := range periods {
		if p.ID == "" {
			key := p.Title + "\x00" + p.TimePeriod.From + "\x00" + p.TimePeriod.To
			id := uuid.NewSHA1(periodNamespace, []byte(key)).String()
			for n := seen[id]; n > 0; n = seen[id] {
				key += "\x00" + strconv.Itoa(n)
				id = uuid.NewSHA1(periodNamespace, []byte(key)).String()
			}
			p.ID = id
			seen[id]++
		}
		out[i] = p
	}
	return out
}

// PreparePeriods runs the boundary pipeline every data source goes through:
// normalize, validate, assign ids.
func PreparePeriods(periods []ReportPeriod) ([]ReportPeriod, error) {
	out := make([]ReportPeriod, 0, len(periods))
	for i, p := range periods {
		n, err := Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i, err)
		}
		out = append(out, n)
	}
	if err := ValidatePeriods(out); err != nil {
		return nil, err
	}
	return AssignIDs(out), nil
}

// ParsePeriods decodes a JSON dataset in the report front-end shape and
// prepares it for display.
func ParsePeriods(r io.Reader) ([]ReportPeriod, error) {
	var periods []ReportPeriod
	dec := json.NewDecoder(r)
	if err := dec.Decode(&periods); err != nil {
		return nil, fmt.Errorf("decode periods: %w", err)
	}
	return PreparePeriods(periods)
}
