package generator

// Config drives the synthetic term and fixture generator.
type Config struct {
	NumTerms     int
	LinksPerTerm int
	// SharedNodeChance is the probability that a link points at a resource
	// another term already links to.
	SharedNodeChance float64
	// NoiseChance is the probability that a link points at a day, year or
	// template page.
	NoiseChance float64
	// ExternalChance is the probability that a link leaves the resource
	// namespace.
	ExternalChance float64
	ResourcePrefix string
	Seed           int64
}

// DefaultConfig returns settings that give a selection with a visible core.
func DefaultConfig() Config {
	return Config{
		NumTerms:         20,
		LinksPerTerm:     40,
		SharedNodeChance: 0.4,
		NoiseChance:      0.1,
		ExternalChance:   0.1,
		ResourcePrefix:   "http://ja.dbpedia.org/resource/",
		Seed:             42,
	}
}
