package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

func renderJSON(w io.Writer, res *license.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, res *license.Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}
