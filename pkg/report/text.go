package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

// maxTableUsers caps the per-user breakdown printed in text mode.
const maxTableUsers = 50

func renderText(w io.Writer, res *license.Result, opts Options) error {
	headline := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)

	if !opts.Color {
		headline.DisableColor()
		dim.DisableColor()
	}

	if _, err := headline.Fprintln(w, Headline(res)); err != nil {
		return fmt.Errorf("write headline: %w", err)
	}

	summary := fmt.Sprintf("records: %s | matched: %s | users: %s",
		humanize.Comma(int64(res.Records)),
		humanize.Comma(int64(res.Matched)),
		humanize.Comma(int64(len(res.Users))))

	if opts.Source != "" {
		summary = "source: " + opts.Source + " | " + summary
	}

	if _, err := dim.Fprintln(w, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if len(res.Users) == 0 {
		return nil
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", userTable(res)); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func userTable(res *license.Result) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"User", "Laptops", "Desktops", "Other", "Licenses"})

	shown := res.Users
	if len(shown) > maxTableUsers {
		shown = shown[:maxTableUsers]
	}

	for _, u := range shown {
		tbl.AppendRow(table.Row{
			u.UserID,
			humanize.Comma(int64(u.Laptops)),
			humanize.Comma(int64(u.Desktops)),
			humanize.Comma(int64(u.Others)),
			humanize.Comma(int64(u.Licenses)),
		})
	}

	footer := "Total"
	if hidden := len(res.Users) - len(shown); hidden > 0 {
		footer = fmt.Sprintf("Total (%s more users)", humanize.Comma(int64(hidden)))
	}

	tbl.AppendFooter(table.Row{footer, "", "", "", humanize.Comma(int64(res.Total))})

	return tbl.Render()
}
