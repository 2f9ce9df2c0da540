package sparql

import (
	"fmt"
	"strings"
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

// ResourceIRI returns the IRI of the resource named after term. Spaces are
// replaced by underscores, following DBpedia's naming of resources.
func ResourceIRI(prefix, term string) string {
	return prefix + strings.ReplaceAll(strings.TrimSpace(term), " ", "_")
}

// objectFilter builds an anchored regex of lookaheads: every include pattern
// must match and no exclude pattern may match at the start of the object.
func objectFilter(include, exclude []string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, p := range include {
		b.WriteString("(?=")
		b.WriteString(p)
		b.WriteString(")")
	}
	for _, p := range exclude {
		b.WriteString("(?!")
		b.WriteString(p)
		b.WriteString(")")
	}
	return literalEscaper.Replace(b.String())
}

// OneHopQuery selects ?p1 ?o1 for every statement about resource whose object
// passes the include/exclude filter.
func OneHopQuery(resource string, include, exclude []string) string {
	return fmt.Sprintf(`
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?p1 ?o1
WHERE {
    <%s> ?p1 ?o1 .
    FILTER regex(?o1, "%s")
}
`, resource, objectFilter(include, exclude))
}

// TwoHopQuery additionally follows every first-hop object one more step.
func TwoHopQuery(resource string, include, exclude []string) string {
	return fmt.Sprintf(`
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?p1 ?o1 ?p2 ?o2
WHERE {
    <%s> ?p1 ?o1 .
    ?o1 ?p2 ?o2 .
    FILTER regex(?o1, "%s")
}
`, resource, objectFilter(include, exclude))
}
