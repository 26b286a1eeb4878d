package report_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
	"github.com/Sumatoshi-tech/licensecount/pkg/report"
)

func TestSchema_DescribesResult(t *testing.T) {
	t.Parallel()

	data, err := report.Schema()
	require.NoError(t, err)

	var schema report.JSONSchema

	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.ElementsMatch(t, []string{"application_id", "records", "matched", "total", "users"}, schema.Required)
	assert.Equal(t, "array", schema.Properties["users"].Type)
	assert.Equal(t, "#/definitions/UserDemand", schema.Properties["users"].Items.Ref)
	assert.Contains(t, schema.Definitions["UserDemand"].Required, "licenses")
}

func TestValidateJSON_RenderedReport(t *testing.T) {
	t.Parallel()

	require.NoError(t, report.ValidateJSON([]byte(render(t, report.FormatJSON, sampleResult(), report.Options{}))))

	empty := &license.Result{ApplicationID: 374, Users: []license.UserDemand{}}
	require.NoError(t, report.ValidateJSON([]byte(render(t, report.FormatJSON, empty, report.Options{}))))
}

func TestValidateJSON_Rejects(t *testing.T) {
	t.Parallel()

	tests := []string{
		`{"application_id": 374}`,
		`{"application_id": "374", "records": 1, "matched": 1, "total": 1, "users": []}`,
		`{"application_id": 374, "records": 1, "matched": 1, "total": 1, "users": [{"user_id": 1}]}`,
		`{"application_id": 374, "records": 1, "matched": 1, "total": 1, "users": [], "extra": true}`,
	}

	for _, doc := range tests {
		assert.ErrorIs(t, report.ValidateJSON([]byte(doc)), report.ErrInvalidReport, doc)
	}
}
