// Package termview prints month grids and day buckets to a terminal.
package termview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"monthcal/internal/bucket"
	"monthcal/internal/grid"
)

const cellWidth = 4

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Width(cellWidth).Align(lipgloss.Right)
	dayStyle    = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right)
	fillerStyle = dayStyle.Foreground(lipgloss.Color("240"))
	todayStyle  = dayStyle.Reverse(true)
	busyStyle   = dayStyle.Underline(true)
)

// Month renders g as a 6 x 7 table. Days with events are underlined and
// today, if present, is reversed.
func Month(g grid.DateGrid, buckets bucket.Buckets, today time.Time) string {
	if g.Empty() {
		return "cannot render this month\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %d", g.Month, g.Year)))
	b.WriteString("\n")

	header := make([]string, 0, grid.DaysPerWeek)
	for _, d := range g.Dates[:grid.DaysPerWeek] {
		header = append(header, headerStyle.Render(d.Weekday().String()[:2]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	todayIdx := g.Index(today)
	for w, week := range g.Weeks() {
		cells := make([]string, 0, grid.DaysPerWeek)
		for i, d := range week {
			idx := w*grid.DaysPerWeek + i
			style := dayStyle
			switch {
			case idx == todayIdx:
				style = todayStyle
			case !g.InMonth(idx):
				style = fillerStyle
			case len(buckets[d]) > 0:
				style = busyStyle
			}
			cells = append(cells, style.Render(fmt.Sprint(d.Day())))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// Agenda lists the buckets in day order.
func Agenda(buckets bucket.Buckets) string {
	days := make([]time.Time, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var b strings.Builder
	for _, d := range days {
		b.WriteString(titleStyle.Render(d.Format("Mon 2006-01-02")))
		b.WriteString("\n")
		for _, ev := range buckets[d] {
			when := ev.Start.Format("15:04") + "-" + ev.End.Format("15:04")
			if ev.AllDay {
				when = "all day"
			}
			fmt.Fprintf(&b, "  %-11s %s", when, ev.Title)
			if ev.SourceID != "" {
				fmt.Fprintf(&b, " [%s]", ev.SourceID)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
