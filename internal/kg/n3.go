package kg

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	n3Separator  = "> <"
	n3Terminator = " ."
)

// SyntaxError reports a line that is not of the form `<s> <p> <o> .`.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("n3 line %d: malformed triple %q", e.Line, e.Text)
}

// FormatN3 renders a triple as a single N3 statement without the newline.
// Identifiers are written verbatim.
func FormatN3(t Triple) string {
	return "<" + t.Subject + n3Separator + t.Predicate + n3Separator + t.Object + ">" + n3Terminator
}

// WriteN3 writes one statement per triple to w.
func (g *Graph) WriteN3(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.triples {
		if _, err := bw.WriteString(FormatN3(t)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseN3 reads statements written by WriteN3. Blank lines are skipped.
func ParseN3(r io.Reader) ([]Triple, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var triples []Triple
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t, ok := parseN3Line(line)
		if !ok {
			return nil, &SyntaxError{Line: lineNo, Text: line}
		}
		triples = append(triples, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return triples, nil
}

func parseN3Line(line string) (Triple, bool) {
	body, ok := strings.CutSuffix(line, n3Terminator)
	if !ok {
		return Triple{}, false
	}
	body = strings.TrimSpace(body)
	if len(body) < 2 || body[0] != '<' || body[len(body)-1] != '>' {
		return Triple{}, false
	}
	parts := strings.Split(body[1:len(body)-1], n3Separator)
	if len(parts) != 3 {
		return Triple{}, false
	}
	return Triple{Subject: parts[0], Predicate: parts[1], Object: parts[2]}, true
}
