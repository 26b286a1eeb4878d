package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

const (
	topUsersLimit = 30
	xAxisRotate   = 45
	chartWidth    = "1200px"
	chartHeight   = "500px"

	colorLaptops  = "#5470c6"
	colorDesktops = "#91cc75"
	colorLicenses = "#ee6666"
)

func renderPlot(w io.Writer, res *license.Result, o Options) error {
	if err := buildChart(res, o).Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// buildChart draws the users with the highest license demand, devices stacked
// next to the licenses they need.
func buildChart(res *license.Result, o Options) *charts.Bar {
	subtitle := Headline(res)
	if o.Source != "" {
		subtitle = o.Source + ": " + subtitle
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "License demand",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("License demand for application %d", res.ApplicationID),
			Subtitle: subtitle,
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "User",
			AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)

	users := topUsers(res.Users, topUsersLimit)

	labels := make([]string, len(users))
	laptops := make([]opts.BarData, len(users))
	desktops := make([]opts.BarData, len(users))
	licenses := make([]opts.BarData, len(users))

	for i, u := range users {
		labels[i] = strconv.Itoa(u.UserID)
		laptops[i] = opts.BarData{Value: u.Laptops}
		desktops[i] = opts.BarData{Value: u.Desktops}
		licenses[i] = opts.BarData{Value: u.Licenses}
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Laptops", laptops,
		charts.WithBarChartOpts(opts.BarChart{Stack: "devices"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorLaptops}))
	bar.AddSeries("Desktops", desktops,
		charts.WithBarChartOpts(opts.BarChart{Stack: "devices"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorDesktops}))
	bar.AddSeries("Licenses", licenses,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorLicenses}))

	return bar
}

func topUsers(users []license.UserDemand, limit int) []license.UserDemand {
	sorted := slices.Clone(users)
	slices.SortStableFunc(sorted, func(a, b license.UserDemand) int {
		return cmp.Compare(b.Licenses, a.Licenses)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}
