package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignPipe(t *testing.T) {
	invs := Parse("please do [GET_URL=https://example.com|links] now")
	require.Len(t, invs, 1)
	assert.Equal(t, "GET_URL", invs[0].Name)
	assert.Equal(t, []string{"https://example.com", "links"}, invs[0].Args)
}

func TestParseAssignComma(t *testing.T) {
	invs := Parse("[INSERT_RAG=title,some text]")
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"title", "some text"}, invs[0].Args)
}

func TestParsePipeWinsOverComma(t *testing.T) {
	// With both separators present the pipe splits and commas stay
	// literal argument text.
	invs := Parse("[A=1|2,3]")
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"1", "2,3"}, invs[0].Args)
}

func TestParseAssignKeepsLaterEquals(t *testing.T) {
	invs := Parse("[A=x=y|z]")
	require.Len(t, invs, 1)
	assert.Equal(t, "A", invs[0].Name)
	assert.Equal(t, []string{"x=y", "z"}, invs[0].Args)
}

func TestParseAssignPreservesWhitespace(t *testing.T) {
	invs := Parse("[A= x , y ]")
	require.Len(t, invs, 1)
	assert.Equal(t, []string{" x ", " y "}, invs[0].Args)
}

func TestParseColonMultiple(t *testing.T) {
	invs := Parse("[GET_URL:https://a.test , REVIEW_RAG:cats]")
	require.Len(t, invs, 2)
	assert.Equal(t, Invocation{Name: "GET_URL", Args: []string{"https://a.test"}}, invs[0])
	assert.Equal(t, Invocation{Name: "REVIEW_RAG", Args: []string{"cats"}}, invs[1])
}

func TestParseColonDropsItemsWithoutColon(t *testing.T) {
	invs := Parse("[A:1, junk, B:2]")
	require.Len(t, invs, 2)
	assert.Equal(t, "A", invs[0].Name)
	assert.Equal(t, "B", invs[1].Name)
}

func TestParseNoDelimiterYieldsNothing(t *testing.T) {
	assert.Empty(t, Parse("just [some aside] in text"))
	assert.Empty(t, Parse("no brackets at all"))
	assert.Empty(t, Parse(""))
}

func TestParseDedupesRepeats(t *testing.T) {
	invs := Parse("[A=1,2] and again [A=1,2]")
	require.Len(t, invs, 1)
	assert.Equal(t, []string{"1", "2"}, invs[0].Args)
}

func TestParseKeepsDifferingArgs(t *testing.T) {
	invs := Parse("[A=1][A=2]")
	require.Len(t, invs, 2)
}

func TestParseMultipleSpansKeepOrder(t *testing.T) {
	invs := Parse("[B=1] middle [A=2]")
	require.Len(t, invs, 2)
	assert.Equal(t, "B", invs[0].Name)
	assert.Equal(t, "A", invs[1].Name)
}

func TestParseIgnoresNestedBrackets(t *testing.T) {
	// The span class excludes brackets, so only the inner pair matches.
	invs := Parse("[outer [A=1] trailing]")
	require.Len(t, invs, 1)
	assert.Equal(t, "A", invs[0].Name)
}

func TestInvocationArg(t *testing.T) {
	inv := Invocation{Name: "A", Args: []string{"one", "two"}}
	assert.Equal(t, "one", inv.Arg(1))
	assert.Equal(t, "two", inv.Arg(2))
	assert.Equal(t, "", inv.Arg(3))
	assert.Equal(t, "", inv.Arg(0))
}

func TestInvocationStringRoundTrip(t *testing.T) {
	inv := Invocation{Name: "GET_URL", Args: []string{"https://example.com", "links"}}
	parsed := Parse(inv.String())
	require.Len(t, parsed, 1)
	assert.True(t, parsed[0].Equal(inv))
}
