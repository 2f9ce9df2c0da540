package kg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatN3(t *testing.T) {
	line := FormatN3(tr("http://r/A", "http://p/x", "http://r/B"))

	assert.Equal(t, "<http://r/A> <http://p/x> <http://r/B> .", line)
}

func TestWriteN3_RoundTrip(t *testing.T) {
	g := NewGraph("g", []Triple{
		tr("http://ja.dbpedia.org/resource/ローソン", "http://dbpedia.org/ontology/wikiPageWikiLink", "http://ja.dbpedia.org/resource/コンビニエンスストア"),
		tr("http://ja.dbpedia.org/resource/ローソン", "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", "http://dbpedia.org/ontology/Company"),
		tr("a", "p", "a"),
	})

	var buf bytes.Buffer
	require.NoError(t, g.WriteN3(&buf))

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, " .\n"))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, g.Len())
	for _, triple := range g.Triples() {
		assert.Contains(t, lines, FormatN3(triple))
	}

	parsed, err := ParseN3(strings.NewReader(out))
	require.NoError(t, err)
	assert.ElementsMatch(t, g.Triples(), parsed)
}

func TestParseN3_SkipsBlankLines(t *testing.T) {
	input := "\n<a> <p> <b> .\n\n   \n<b> <p> <c> .\n"

	parsed, err := ParseN3(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []Triple{tr("a", "p", "b"), tr("b", "p", "c")}, parsed)
}

func TestParseN3_Malformed(t *testing.T) {
	cases := []string{
		"<a> <p> <b>",
		"a p b .",
		"<a> <p> .",
		"<a> <p> <b> <c> .",
	}

	for _, input := range cases {
		_, err := ParseN3(strings.NewReader("<x> <y> <z> .\n" + input + "\n"))

		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), "input %q", input)
		assert.Equal(t, 2, syntaxErr.Line)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteN3_PropagatesWriterError(t *testing.T) {
	g := NewGraph("g", []Triple{tr("a", "p", "b")})

	err := g.WriteN3(failingWriter{})

	assert.EqualError(t, err, "disk full")
}
