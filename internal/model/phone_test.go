package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already E.164", "+16175551234", "+16175551234"},
		{"bare 10 digit US", "6175551234", "+16175551234"},
		{"11 digit with country code", "16175551234", "+16175551234"},
		{"formatted", "(617) 555-1234", "+16175551234"},
		{"dots and spaces", " 617.555.1234 ", "+16175551234"},
		{"international", "+447911123456", "+447911123456"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizePhone(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "hello", "123", "+0123456789", "ds-client-42"} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizePhone(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPhone))
		})
	}
}
