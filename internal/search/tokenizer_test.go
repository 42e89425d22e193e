package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Hello World", []string{"hello", "world"}},
		{"strips punctuation", "q3. planning, (again)!", []string{"q3", "planning", "again"}},
		{"collapses separators", "a -- b\t\tc", []string{"a", "b", "c"}},
		{"empty", "  ... ", nil},
		{"keeps digits", "budget 2026", []string{"budget", "2026"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Tokenize(tc.in))
		})
	}
}

func TestTokenizeTag(t *testing.T) {
	require.Equal(t, []string{"greeting"}, TokenizeTag("Greeting"))
	require.Equal(t, []string{"quarterly review", "quarterly", "review"}, TokenizeTag("Quarterly Review"))
	require.Nil(t, TokenizeTag("  "))
}
