package license_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

const targetApp = 374

func newTestCalculator(t *testing.T, opts ...license.Option) *license.Calculator {
	t.Helper()

	calc, err := license.NewCalculator(slog.New(slog.NewTextHandler(io.Discard, nil)), targetApp, opts...)
	require.NoError(t, err)

	return calc
}

func rec(computerID, userID, appID int, computerType string) installation.Record {
	return installation.Record{
		ComputerID:    computerID,
		UserID:        userID,
		ApplicationID: appID,
		ComputerType:  computerType,
		Comment:       "Exported from System A",
	}
}

func TestNewCalculator_NilLogger(t *testing.T) {
	t.Parallel()

	calc, err := license.NewCalculator(nil, targetApp)
	require.ErrorIs(t, err, license.ErrInvalidArgument)
	assert.Nil(t, calc)
}

func TestCalculateMinimumLicenses_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []installation.Record
		want    int
	}{
		{
			name:    "single laptop",
			records: []installation.Record{rec(1, 1, targetApp, "Laptop")},
			want:    1,
		},
		{
			name: "laptop and desktop pair plus lone desktop",
			records: []installation.Record{
				rec(1, 1, targetApp, "DESKTOP"),
				rec(3, 1, targetApp, "Laptop"),
				rec(2, 2, targetApp, "desktop"),
			},
			want: 2,
		},
		{
			name: "pair plus two desktops",
			records: []installation.Record{
				rec(1, 1, targetApp, "Laptop"),
				rec(2, 1, targetApp, "DESKTOP"),
				rec(4, 2, targetApp, "DESKTOP"),
				rec(3, 2, targetApp, "desktop"),
			},
			want: 3,
		},
		{
			name: "other applications only",
			records: []installation.Record{
				rec(1, 1, 379, "Laptop"),
				rec(2, 1, 560, "DESKTOP"),
			},
			want: 0,
		},
		{
			name: "other computer types only",
			records: []installation.Record{
				rec(1, 1, targetApp, "IPAD"),
				rec(2, 1, targetApp, "Tablet"),
			},
			want: 0,
		},
		{
			name: "desktops only",
			records: []installation.Record{
				rec(1, 1, targetApp, "Desktop"),
				rec(2, 2, targetApp, "dEsktoP"),
			},
			want: 2,
		},
		{
			name: "more laptops than desktops",
			records: []installation.Record{
				rec(1, 1, targetApp, "laptop"),
				rec(2, 1, targetApp, "LAPTOP"),
				rec(3, 1, targetApp, "Laptop"),
				rec(4, 1, targetApp, "Desktop"),
			},
			want: 3,
		},
		{
			name: "empty computer type ignored",
			records: []installation.Record{
				rec(1, 1, targetApp, ""),
				rec(2, 1, targetApp, "Laptop"),
			},
			want: 1,
		},
		{
			name:    "empty",
			records: []installation.Record{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := newTestCalculator(t).CalculateMinimumLicenses(context.Background(), tt.records)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateMinimumLicenses_NilRecords(t *testing.T) {
	t.Parallel()

	_, err := newTestCalculator(t).CalculateMinimumLicenses(context.Background(), nil)
	require.ErrorIs(t, err, license.ErrInvalidArgument)
}

func TestCalculate_Breakdown(t *testing.T) {
	t.Parallel()

	records := []installation.Record{
		rec(4, 2, targetApp, "DESKTOP"),
		rec(3, 2, targetApp, "desktop"),
		rec(5, 2, targetApp, "Tablet"),
		rec(1, 1, targetApp, "Laptop"),
		rec(2, 1, targetApp, "DESKTOP"),
		rec(9, 3, 100, "Laptop"),
	}

	res, err := newTestCalculator(t).Calculate(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, targetApp, res.ApplicationID)
	assert.Equal(t, 6, res.Records)
	assert.Equal(t, 5, res.Matched)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []license.UserDemand{
		{UserID: 1, Laptops: 1, Desktops: 1, Licenses: 1},
		{UserID: 2, Desktops: 2, Others: 1, Licenses: 2},
	}, res.Users)
}

func TestCalculate_EmptyHasNoUsers(t *testing.T) {
	t.Parallel()

	res, err := newTestCalculator(t).Calculate(context.Background(), []installation.Record{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Users)
	assert.Empty(t, res.Users)
}

func TestLicenses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		laptops, desktops, want int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, 1},
		{1, 1, 1},
		{1, 2, 2},
		{3, 1, 3},
		{4, 4, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, license.Licenses(tt.laptops, tt.desktops), "laptops=%d desktops=%d", tt.laptops, tt.desktops)
	}
}

func randomRecords(seed uint64, n int) []installation.Record {
	rng := rand.New(rand.NewPCG(seed, seed))
	types := []string{"Laptop", "LAPTOP", "desktop", "Desktop", "Tablet", "IPad", ""}
	apps := []int{targetApp, targetApp, targetApp, 375}

	records := make([]installation.Record, 0, n)
	for i := range n {
		records = append(records, installation.Record{
			ComputerID:    i,
			UserID:        rng.IntN(n/3 + 1),
			ApplicationID: apps[rng.IntN(len(apps))],
			ComputerType:  types[rng.IntN(len(types))],
		})
	}

	return records
}

func TestCalculate_PartitionedMatchesSequential(t *testing.T) {
	t.Parallel()

	records := randomRecords(42, 3000)

	sequential, err := newTestCalculator(t, license.WithParallelThreshold(0)).Calculate(context.Background(), records)
	require.NoError(t, err)

	partitioned, err := newTestCalculator(t,
		license.WithParallelThreshold(1),
		license.WithWorkers(4),
	).Calculate(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, sequential, partitioned)
}

func TestCalculate_PartitionedNegativeUserIDs(t *testing.T) {
	t.Parallel()

	records := []installation.Record{
		rec(1, -7, targetApp, "Laptop"),
		rec(2, -7, targetApp, "Desktop"),
		rec(3, -2, targetApp, "Desktop"),
		rec(4, 5, targetApp, "Laptop"),
	}

	res, err := newTestCalculator(t, license.WithParallelThreshold(1), license.WithWorkers(3)).
		Calculate(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Users, 3)
	assert.Equal(t, -7, res.Users[0].UserID)
}

func TestCalculate_PartitionedCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCalculator(t, license.WithParallelThreshold(1), license.WithWorkers(2)).
		Calculate(ctx, randomRecords(7, 100))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculate_TotalBounds(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)

	for seed := range uint64(20) {
		records := randomRecords(seed, 200)

		res, err := calc.Calculate(context.Background(), records)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.Total, 0)
		assert.LessOrEqual(t, res.Total, res.Matched)
	}
}

func TestCalculate_OrderIndependent(t *testing.T) {
	t.Parallel()

	records := randomRecords(3, 500)
	reversed := make([]installation.Record, len(records))

	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	calc := newTestCalculator(t)

	a, err := calc.CalculateMinimumLicenses(context.Background(), records)
	require.NoError(t, err)

	b, err := calc.CalculateMinimumLicenses(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
