package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"example.com/timetrack/internal/app"
	"example.com/timetrack/internal/recap"
)

const (
	colorAccent = "#7C3AED"
	colorBorder = "#3A3F55"
	colorMuted  = "240"
)

type recapFlags struct {
	date      string
	weekStart string
	year      string
	month     string
	tzOffset  string
	format    string
}

func newRecapCmd(cc *cliContext) *cobra.Command {
	var f recapFlags

	cmd := &cobra.Command{
		Use:   "recap <daily|weekly|monthly>",
		Short: "Print the time spent per activity for a period",
		Long: `Print the time spent per activity for a day, week or month.

Examples:
  trackctl recap daily --date 2024-03-10
  trackctl recap weekly --tz-offset -60
  trackctl recap monthly --year 2024 --month 3 --format json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(recap.Daily), string(recap.Weekly), string(recap.Monthly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.format != "table" && f.format != "json" {
				return fmt.Errorf("unknown format %q, use table or json", f.format)
			}

			loc, err := app.LoadLocation(cc.cfg.DefaultTimezone)
			if err != nil {
				return err
			}

			// The CLI only reads; it never publishes track events.
			cfg := cc.cfg
			cfg.KafkaEnabled = false
			backend, err := app.OpenStore(cmd.Context(), cfg, cc.logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			aggregator := recap.NewAggregator(backend.Store, recap.WithDefaultLocation(loc))
			summary, err := aggregator.Run(cmd.Context(), args[0], recap.Query{
				Date:      f.date,
				WeekStart: f.weekStart,
				Year:      f.year,
				Month:     f.month,
				TZOffset:  f.tzOffset,
			})
			if err != nil {
				return err
			}

			if f.format == "json" {
				return writeSummaryJSON(cmd.OutOrStdout(), summary)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderSummary(summary)+"\n")
			return err
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "", "day to report for daily recaps (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.weekStart, "week-start", "", "any day inside the week for weekly recaps")
	cmd.Flags().StringVar(&f.year, "year", "", "year for monthly recaps, together with --month")
	cmd.Flags().StringVar(&f.month, "month", "", "month (1-12) for monthly recaps, together with --year")
	cmd.Flags().StringVar(&f.tzOffset, "tz-offset", "", "minutes the local time is behind UTC (default $DEFAULT_TIMEZONE)")
	cmd.Flags().StringVar(&f.format, "format", "table", "output format: table or json")
	return cmd
}

func writeSummaryJSON(w io.Writer, summary *recap.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// renderSummary draws the recap as a bordered table under a title line.
func renderSummary(summary *recap.Summary) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s recap: %s", modeTitle(summary.Mode), summary.Label)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s → %s", summary.Start.Format("2006-01-02 15:04 -07:00"), summary.End.Format("2006-01-02 15:04 -07:00"))))
	b.WriteString("\n")

	if len(summary.Entries) == 0 {
		b.WriteString(mutedStyle.Render("No tracks in this period."))
		return b.String()
	}

	rows := make([][]string, 0, len(summary.Entries))
	for _, e := range summary.Entries {
		rows = append(rows, []string{
			e.ActivityName,
			recap.FormatMinutes(e.Minutes),
			strconv.FormatFloat(e.Minutes, 'f', 2, 64),
			strconv.FormatFloat(e.Percentage, 'f', 2, 64) + "%",
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder))).
		Headers("Activity", "Duration", "Minutes", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 2:
				return numberStyle
			default:
				return cellStyle
			}
		})

	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("Total: %s across %d tracks", recap.FormatMinutes(summary.TotalMinutes), summary.TracksCount)))
	return b.String()
}

func modeTitle(mode recap.Mode) string {
	s := string(mode)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
