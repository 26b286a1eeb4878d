// Package report renders license calculation results as text, JSON, YAML or
// an HTML bar chart.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

// ErrUnknownFormat is returned for a format outside Formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ErrNilResult is returned when there is nothing to render.
var ErrNilResult = errors.New("nil result")

// Formats lists every supported format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatPlot}

// Options tune rendering.
type Options struct {
	// Color enables ANSI color in text output when the terminal supports it.
	Color bool
	// Source names the input in text and plot output.
	Source string
}

// Render writes res to w in the given format.
func Render(w io.Writer, format string, res *license.Result, opts Options) error {
	if res == nil {
		return ErrNilResult
	}

	switch format {
	case FormatText:
		return renderText(w, res, opts)
	case FormatJSON:
		return renderJSON(w, res)
	case FormatYAML:
		return renderYAML(w, res)
	case FormatPlot:
		return renderPlot(w, res, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Headline is the one-sentence summary of a calculation.
func Headline(res *license.Result) string {
	return fmt.Sprintf(
		"The minimum number of application copies required for the application %d for the organisation is %d.",
		res.ApplicationID, res.Total)
}
