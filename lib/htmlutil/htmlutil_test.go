package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "  Mon 10:00\n", expected: "Mon 10:00"},
		{in: "\t月\n   3限 \u0000", expected: "月 3限"},
		{in: "", expected: ""},
		{in: "  お知らせ  ", expected: "お知らせ"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, CleanText(test.in))
	}
}
