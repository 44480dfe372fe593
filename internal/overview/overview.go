// Package overview computes the dashboard landing statistics.
package overview

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spcai/labcms/pkg/core"
)

// RecentProjectLimit is how many project names the overview lists.
const RecentProjectLimit = 5

// MonthCount is the number of publications dated in one month.
type MonthCount struct {
	Month time.Time `json:"month"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

// Stats is the content of the overview page.
type Stats struct {
	PublicationsPastYear int            `json:"publications_past_year"`
	PerMonth             []MonthCount   `json:"per_month"`
	RecentProjects       []string       `json:"recent_projects"`
	Totals               map[string]int `json:"totals"`
}

// ParseDate reads a publication date in the "MM, YYYY" form.
func ParseDate(s string) (time.Time, bool) {
	month, year, ok := strings.Cut(s, ",")
	if !ok {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

// Compute gathers the statistics as of now. The past year is the current
// month and the eleven before it.
func Compute(ctx context.Context, rows core.RowStore, tables []string, now time.Time) (Stats, error) {
	stats := Stats{Totals: make(map[string]int, len(tables))}

	for _, t := range tables {
		recs, err := rows.Select(ctx, t)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to count %s: %w", t, err)
		}
		stats.Totals[t] = len(recs)
	}

	pubs, err := rows.Select(ctx, "publications")
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load publications: %w", err)
	}

	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := current.AddDate(0, -11, 0)
	index := make(map[time.Time]int, 12)
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		index[m] = i
		stats.PerMonth = append(stats.PerMonth, MonthCount{Month: m, Label: m.Format("01, 2006")})
	}

	for _, p := range pubs {
		d, ok := ParseDate(p.Value("date").String())
		if !ok {
			continue
		}
		if i, ok := index[d]; ok {
			stats.PerMonth[i].Count++
			stats.PublicationsPastYear++
		}
	}

	projects, err := rows.Select(ctx, "projects")
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load projects: %w", err)
	}
	stats.RecentProjects = []string{}
	for i := len(projects) - 1; i >= 0 && len(stats.RecentProjects) < RecentProjectLimit; i-- {
		stats.RecentProjects = append(stats.RecentProjects, projects[i].Value("name").String())
	}

	return stats, nil
}
