package strutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrListContains(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	haystack := []string{
		"https",
		"http",
	}
	require.False(StrListContains(haystack, "ftp"))
	require.False(StrListContains(nil, "https"))
	require.True(StrListContains(haystack, "https"))
}
