package meeting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusUploaded, StatusTranscribing, true},
		{StatusTranscribing, StatusTranscribed, true},
		{StatusTranscribed, StatusSummarizing, true},
		{StatusSummarizing, StatusReady, true},
		{StatusUploaded, StatusFailed, true},
		{StatusSummarizing, StatusFailed, true},
		{StatusUploaded, StatusTranscribed, false},
		{StatusTranscribed, StatusTranscribing, false},
		{StatusReady, StatusFailed, false},
		{StatusFailed, StatusUploaded, false},
		{StatusReady, StatusSummarizing, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	require.True(t, StatusReady.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.False(t, StatusUploaded.Terminal())
	require.False(t, StatusSummarizing.Terminal())
}
