package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	t.Run("two decimal places", func(t *testing.T) {
		minor, err := ToMinorUnits(decimal.RequireFromString("12.50"))
		require.NoError(t, err)
		require.Equal(t, int64(1250), minor)
	})

	t.Run("whole amount", func(t *testing.T) {
		minor, err := ToMinorUnits(decimal.RequireFromString("50"))
		require.NoError(t, err)
		require.Equal(t, int64(5000), minor)
	})

	t.Run("zero", func(t *testing.T) {
		minor, err := ToMinorUnits(decimal.Zero)
		require.NoError(t, err)
		require.Equal(t, int64(0), minor)
	})

	t.Run("sub-cent precision rejected", func(t *testing.T) {
		_, err := ToMinorUnits(decimal.RequireFromString("12.505"))
		require.Error(t, err)
	})
}

func TestFromMinorUnits(t *testing.T) {
	require.True(t, decimal.RequireFromString("12.50").Equal(FromMinorUnits(1250)))
	require.True(t, decimal.RequireFromString("0.01").Equal(FromMinorUnits(1)))
	require.True(t, decimal.Zero.Equal(FromMinorUnits(0)))
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "1.00", "12.50", "9999.99"} {
		amount := decimal.RequireFromString(s)
		minor, err := ToMinorUnits(amount)
		require.NoError(t, err)
		require.True(t, amount.Equal(FromMinorUnits(minor)), "round trip for %s", s)
	}
}
