package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyTermType(t *testing.T) {
	require.Equal(t, TermASIN, ClassifyTermType("b07xyz1234"))
	require.Equal(t, TermASIN, ClassifyTermType("B08ABCD123"))
	require.Equal(t, TermKeyword, ClassifyTermType("wireless mouse"))
	require.Equal(t, TermKeyword, ClassifyTermType("b07xyz123"))   // 9 chars
	require.Equal(t, TermKeyword, ClassifyTermType("b07xyz12345")) // 11 chars
	require.Equal(t, TermKeyword, ClassifyTermType("b0-xyz1234"))  // non-alphanumeric tail
	require.Equal(t, TermKeyword, ClassifyTermType("a07xyz1234"))  // wrong prefix
}

func TestWordCount(t *testing.T) {
	require.Equal(t, 3, WordCount("  blue wireless   mouse "))
	require.Equal(t, 1, WordCount("mouse"))
	require.Equal(t, 0, WordCount("   "))
}

func TestClassifyBrandCategory(t *testing.T) {
	c := Classify("acme wireless mouse", "ACME")
	require.Equal(t, BrandBranded, c.BrandCategory)

	c = Classify("wireless mouse", "acme")
	require.Equal(t, BrandGeneric, c.BrandCategory)

	// No brand configured: the field is omitted, not defaulted.
	c = Classify("acme wireless mouse", "")
	require.Empty(t, c.BrandCategory)
	require.Equal(t, TermKeyword, c.TermType)
	require.Equal(t, 3, c.WordCount)
}
