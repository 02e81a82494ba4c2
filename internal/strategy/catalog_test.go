package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_ExactNames(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		icon string
	}{
		{"高時間框架順勢", HigherTimeframeTrend, "🚀"},
		{"Unicorn模型", Unicorn, "🦄"},
		{"Turtle Soup", TurtleSoup, "🐢"},
	}
	for _, tt := range tests {
		p := Lookup(tt.name)
		assert.Equal(t, tt.kind, p.Kind, tt.name)
		assert.Equal(t, tt.icon, p.Icon, tt.name)
		assert.Len(t, p.Advisory, 3, tt.name)
	}
}

func TestLookup_SubstringGetsAdvisoryButGenericIcon(t *testing.T) {
	p := Lookup("Unicorn v2")
	assert.Equal(t, Unicorn, p.Kind)
	assert.Equal(t, DefaultIcon, p.Icon)
	assert.Equal(t, "等待價格回踩價值區域", p.Advisory[0])
}

func TestLookup_Unknown(t *testing.T) {
	for _, name := range []string{"", "RSI Divergence", "unicorn模型"} {
		p := Lookup(name)
		assert.Equal(t, Unknown, p.Kind, name)
		assert.Equal(t, DefaultIcon, p.Icon, name)
		assert.Empty(t, p.Advisory, name)
	}
}

func TestLookup_MatchOrder(t *testing.T) {
	// Both substrings present: the catalog order decides.
	p := Lookup("高時間框架 Turtle")
	assert.Equal(t, HigherTimeframeTrend, p.Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unicorn", Unicorn.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
