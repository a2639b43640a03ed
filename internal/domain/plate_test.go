package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "legacy with hyphen", raw: "abc-1234", want: "ABC1234"},
		{name: "unified layout", raw: "ABC1D23", want: "ABC1D23"},
		{name: "spaces and mixed case", raw: "  aBc 1d23 ", want: "ABC1D23"},
		{name: "tabs stripped", raw: "abc\t1234", want: "ABC1234"},
		{name: "too short", raw: "AB1234", wantErr: true},
		{name: "too long", raw: "ABC12345", wantErr: true},
		{name: "letter in last digits", raw: "ABC12D3", wantErr: true},
		{name: "digit in prefix", raw: "A1C1234", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "other separator", raw: "ABC.1234", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlate(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlate)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePlateIdempotent(t *testing.T) {
	for _, raw := range []string{"abc-1234", "abc 1d23", "XYZ9A99", "qwe-9z00"} {
		first, err := NormalizePlate(raw)
		require.NoError(t, err, raw)
		second, err := NormalizePlate(first)
		require.NoError(t, err, first)
		assert.Equal(t, first, second)
	}
}
