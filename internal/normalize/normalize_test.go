package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const nbsp = "\u00a0"

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing_space_lowercase", "plywood ", "PLYWOOD"},
		{"already_canonical", "PLYWOOD", "PLYWOOD"},
		{"leading_tab_and_newline", "\tOak\n", "OAK"},
		{"nbsp_trimmed", nbsp + "mdf 18mm" + nbsp, "MDF 18MM"},
		{"internal_space_kept", "foam  sheet", "FOAM  SHEET"},
		{"fullwidth_folded", "ｆａｂｒｉｃ", "FABRIC"},
		{"empty", "", ""},
		{"only_space", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Name(tc.in))
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	inputs := []string{
		"plywood ", " Oak", "ｆａｂｒｉｃ", nbsp + "x" + nbsp, "Sponge D23 / 2\"", "straße", "",
	}
	for _, in := range inputs {
		once := Name(in)
		assert.Equal(t, once, Name(once), "input %q", in)
	}
}

func TestValue(t *testing.T) {
	n, ok := Value(" plywood")
	assert.True(t, ok)
	assert.Equal(t, "PLYWOOD", n)

	_, ok = Value(nil)
	assert.False(t, ok)

	_, ok = Value("  ")
	assert.False(t, ok)

	n, ok = Value(1200.0)
	assert.True(t, ok)
	assert.Equal(t, "1200", n)

	_, ok = Value(true)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("plywood ", "PLYWOOD"))
	assert.False(t, Equal("", " "))
	assert.False(t, Equal("OAK", "PLYWOOD"))
}
