/*
Package calendar provides the working-day calendar collaborator.

PURPOSE:
  The scoring engine needs a positive working-day count per billing
  cycle but does not compute calendars itself. This package counts
  weekdays in a cycle window and subtracts configured office holidays.

HOLIDAY CONFIGURATION:
  Holidays load from a YAML file:

    holidays:
      - date: 2025-12-25
        name: Christmas Day
      - date: 2026-01-26
        name: Republic Day

  A nil/empty calendar still works: weekends only.

SEE ALSO:
  - scoring/aggregate.go: Consumes the working-day count
*/
package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/comp-engine/scoring"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HOLIDAY - A configured non-working day
// =============================================================================

type Holiday struct {
	Date time.Time
	Name string
}

type holidayYAML struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type configYAML struct {
	Holidays []holidayYAML `yaml:"holidays"`
}

// LoadHolidays reads a YAML holiday file. Dates must be YYYY-MM-DD.
func LoadHolidays(path string) ([]Holiday, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday file: %w", err)
	}
	return ParseHolidays(raw)
}

// ParseHolidays parses YAML holiday content.
func ParseHolidays(raw []byte) ([]Holiday, error) {
	var cfg configYAML
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse holiday file: %w", err)
	}
	holidays := make([]Holiday, 0, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.ParseInLocation(dateLayout, h.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", h.Date, err)
		}
		holidays = append(holidays, Holiday{Date: d, Name: h.Name})
	}
	return holidays, nil
}

// =============================================================================
// CALENDAR - Working-day counting
// =============================================================================

// Calendar counts working days: Monday-Friday minus holidays.
type Calendar struct {
	holidays map[string]Holiday // keyed by YYYY-MM-DD
}

func New(holidays []Holiday) *Calendar {
	m := make(map[string]Holiday, len(holidays))
	for _, h := range holidays {
		m[h.Date.UTC().Format(dateLayout)] = h
	}
	return &Calendar{holidays: m}
}

// IsHoliday reports whether the date is a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.UTC().Format(dateLayout)]
	return ok
}

// IsWorkingDay reports whether t is a weekday and not a holiday.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	wd := t.UTC().Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.IsHoliday(t)
}

// WorkingDays counts working days within the billing cycle, end day
// included.
func (c *Calendar) WorkingDays(cycle scoring.BillingCycle) int {
	count := 0
	for d := cycle.Start; !d.After(cycle.End); d = d.AddDate(0, 0, 1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count
}
