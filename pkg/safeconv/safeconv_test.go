package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/licensecount/pkg/safeconv"
)

func TestUint64ToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      uint64
		want    int64
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"small", 32 << 20, 32 << 20, false},
		{"max", math.MaxInt64, math.MaxInt64, false},
		{"overflow", math.MaxInt64 + 1, 0, true},
		{"max uint64", math.MaxUint64, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := safeconv.Uint64ToInt64(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, safeconv.ErrOverflow)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustInt64ToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), safeconv.MustInt64ToUint64(0))
	assert.Equal(t, uint64(math.MaxInt64), safeconv.MustInt64ToUint64(math.MaxInt64))
	assert.Panics(t, func() { safeconv.MustInt64ToUint64(-1) })
}
