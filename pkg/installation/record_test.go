package installation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
)

func TestRecordKey_IgnoresCommentAndTypeCase(t *testing.T) {
	t.Parallel()

	first := installation.Record{ComputerID: 2, UserID: 2, ApplicationID: 374, ComputerType: "DESKTOP", Comment: "Exported from System A"}
	second := installation.Record{ComputerID: 2, UserID: 2, ApplicationID: 374, ComputerType: "desktop", Comment: "Exported from System B"}

	assert.Equal(t, first.Key(), second.Key())
	assert.Equal(t, "DESKTOP", first.Key().ComputerType)
}

func TestRecordKey_DistinguishesIdentifiers(t *testing.T) {
	t.Parallel()

	base := installation.Record{ComputerID: 1, UserID: 1, ApplicationID: 374, ComputerType: "Laptop"}

	variants := []installation.Record{
		{ComputerID: 2, UserID: 1, ApplicationID: 374, ComputerType: "Laptop"},
		{ComputerID: 1, UserID: 2, ApplicationID: 374, ComputerType: "Laptop"},
		{ComputerID: 1, UserID: 1, ApplicationID: 375, ComputerType: "Laptop"},
		{ComputerID: 1, UserID: 1, ApplicationID: 374, ComputerType: "Desktop"},
	}

	for _, v := range variants {
		assert.NotEqual(t, base.Key(), v.Key())
	}
}

func TestRecordCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		computerType string
		want         installation.Category
	}{
		{"LAPTOP", installation.CategoryLaptop},
		{"Laptop", installation.CategoryLaptop},
		{"laptop", installation.CategoryLaptop},
		{"DESKTOP", installation.CategoryDesktop},
		{"dEsktoP", installation.CategoryDesktop},
		{"IPAD", installation.CategoryOther},
		{"Tablet", installation.CategoryOther},
		{"", installation.CategoryOther},
		{" Laptop", installation.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.computerType, func(t *testing.T) {
			t.Parallel()

			rec := installation.Record{ComputerType: tt.computerType}
			assert.Equal(t, tt.want, rec.Category())
		})
	}
}

func TestCategoryString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "laptop", installation.CategoryLaptop.String())
	assert.Equal(t, "desktop", installation.CategoryDesktop.String())
	assert.Equal(t, "other", installation.CategoryOther.String())
}
