package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/loader"
	"github.com/Sumatoshi-tech/licensecount/pkg/pipeline"
	"github.com/Sumatoshi-tech/licensecount/pkg/report"
	"github.com/Sumatoshi-tech/licensecount/pkg/units"
)

// Tool name constants.
const (
	ToolNameCalculate       = "licensecount_calculate"
	ToolNameCalculateInline = "licensecount_calculate_inline"
)

// MaxInlineCSVBytes is the maximum allowed size for inline CSV input (1 MB).
const MaxInlineCSVBytes = units.MiB

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates the path is relative.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrNotCSV indicates the path lacks a .csv or .csv.lz4 extension.
	ErrNotCSV = errors.New("only CSV sources are supported")
	// ErrEmptyCSV indicates the csv parameter is empty.
	ErrEmptyCSV = errors.New("csv parameter is required and must not be empty")
	// ErrCSVTooLarge indicates the inline CSV exceeds the size limit.
	ErrCSVTooLarge = errors.New("csv input exceeds maximum size")
	// ErrInvalidApplicationID indicates a negative application_id.
	ErrInvalidApplicationID = errors.New("application_id must not be negative")
)

// CalculateInput is the input schema for the licensecount_calculate tool.
type CalculateInput struct {
	Path          string `json:"path"                     jsonschema:"absolute path to a .csv or .csv.lz4 installation export"`
	ApplicationID int    `json:"application_id,omitempty" jsonschema:"target application id (default: configured target)"`
}

// CalculateInlineInput is the input schema for the licensecount_calculate_inline tool.
type CalculateInlineInput struct {
	CSV           string `json:"csv"                      jsonschema:"CSV installation export including the header row"`
	ApplicationID int    `json:"application_id,omitempty" jsonschema:"target application id (default: configured target)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleCalculate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CalculateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePathInput(input.Path, input.ApplicationID)
	if err != nil {
		return errorResult(err)
	}

	res, err := s.runner.Run(ctx, pipeline.Source{Path: input.Path, ApplicationID: input.ApplicationID})
	if err != nil {
		return errorResult(err)
	}

	return calculationResult(res)
}

func (s *Server) handleCalculateInline(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CalculateInlineInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateInlineInput(input.CSV, input.ApplicationID)
	if err != nil {
		return errorResult(err)
	}

	res, err := s.runner.Run(ctx, pipeline.Source{
		Reader:        strings.NewReader(input.CSV),
		Name:          "inline",
		ApplicationID: input.ApplicationID,
	})
	if err != nil {
		return errorResult(err)
	}

	return calculationResult(res)
}

func validatePathInput(path string, applicationID int) error {
	if path == "" {
		return ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	if !loader.HasCSVExtension(path) {
		return fmt.Errorf("%w: %s", ErrNotCSV, path)
	}

	return validateApplicationID(applicationID)
}

func validateInlineInput(csv string, applicationID int) error {
	if csv == "" {
		return ErrEmptyCSV
	}

	if len(csv) > MaxInlineCSVBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCSVTooLarge, len(csv), MaxInlineCSVBytes)
	}

	return validateApplicationID(applicationID)
}

func validateApplicationID(applicationID int) error {
	if applicationID < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidApplicationID, applicationID)
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// calculationResult returns the headline and the JSON report as content.
func calculationResult(res *license.Result) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: report.Headline(res)},
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: res}, nil
}
