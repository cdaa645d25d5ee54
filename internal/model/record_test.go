package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordList(t *testing.T) {
	r := CompanyRecord{Keywords: " logistics, ,freight ,, warehousing "}
	assert.Equal(t, []string{"logistics", "freight", "warehousing"}, r.KeywordList())

	empty := CompanyRecord{}
	assert.Empty(t, empty.KeywordList())
}

func TestHasName(t *testing.T) {
	assert.True(t, (&CompanyRecord{EntityName: "Acme"}).HasName())
	assert.False(t, (&CompanyRecord{EntityName: "   "}).HasName())
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12", 12, true},
		{"12.0", 12, true},
		{" 1,200 ", 1200, true},
		{"12.5", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFloat(t *testing.T) {
	got, ok := ParseFloat("1,234.5")
	assert.True(t, ok)
	assert.InDelta(t, 1234.5, got, 0.0001)

	_, ok = ParseFloat("unknown")
	assert.False(t, ok)
}

func TestParseBool(t *testing.T) {
	v, ok := ParseBool("True")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = ParseBool("0.0")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = ParseBool("maybe")
	assert.False(t, ok)
}
