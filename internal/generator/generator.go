package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/kgharvest/internal/kg"
	"github.com/vanshika/kgharvest/internal/sparql"
)

// Dataset is a term list and the triples a fetch of each term returns.
type Dataset struct {
	Terms   []string
	Fixture sparql.Fixture
}

// Generator produces synthetic harvest inputs for offline runs.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	pool []string
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumTerms <= 0 {
		cfg.NumTerms = def.NumTerms
	}
	if cfg.LinksPerTerm <= 0 {
		cfg.LinksPerTerm = def.LinksPerTerm
	}
	if cfg.SharedNodeChance <= 0 {
		cfg.SharedNodeChance = def.SharedNodeChance
	}
	if cfg.ResourcePrefix == "" {
		cfg.ResourcePrefix = def.ResourcePrefix
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	dataset := Dataset{
		Terms:   make([]string, 0, g.cfg.NumTerms),
		Fixture: make(sparql.Fixture, g.cfg.NumTerms),
	}

	for i := 0; i < g.cfg.NumTerms; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		term := termName(i)
		subject := sparql.ResourceIRI(g.cfg.ResourcePrefix, term)
		triples := make([]kg.Triple, 0, g.cfg.LinksPerTerm)
		for j := 0; j < g.cfg.LinksPerTerm; j++ {
			triples = append(triples, kg.Triple{
				Subject:   subject,
				Predicate: predicates[g.rand.Intn(len(predicates))],
				Object:    g.object(),
			})
		}

		dataset.Terms = append(dataset.Terms, term)
		dataset.Fixture[term] = triples
	}
	return dataset, nil
}

func (g *Generator) object() string {
	roll := g.rand.Float64()
	switch {
	case roll < g.cfg.NoiseChance:
		return g.cfg.ResourcePrefix + g.noisePage()
	case roll < g.cfg.NoiseChance+g.cfg.ExternalChance:
		return externals[g.rand.Intn(len(externals))]
	}
	return g.maybeShared(func() string {
		return g.cfg.ResourcePrefix + fmt.Sprintf("%s_%d", concepts[g.rand.Intn(len(concepts))], g.rand.Intn(1000))
	})
}

func (g *Generator) maybeShared(newValue func() string) string {
	if len(g.pool) > 0 && g.rand.Float64() < g.cfg.SharedNodeChance {
		return g.pool[g.rand.Intn(len(g.pool))]
	}
	val := newValue()
	g.pool = append(g.pool, val)
	return val
}

func (g *Generator) noisePage() string {
	switch g.rand.Intn(3) {
	case 0:
		return fmt.Sprintf("%d月%d日", 1+g.rand.Intn(12), 1+g.rand.Intn(28))
	case 1:
		return fmt.Sprintf("%d年", 1900+g.rand.Intn(120))
	default:
		return "Template:" + concepts[g.rand.Intn(len(concepts))]
	}
}

func termName(i int) string {
	base := baseTerms[i%len(baseTerms)]
	if i < len(baseTerms) {
		return base
	}
	return fmt.Sprintf("%s_%d", base, i/len(baseTerms))
}

var baseTerms = []string{
	"東京", "京都", "大阪", "札幌", "福岡", "名古屋", "横浜", "神戸",
	"富士山", "琵琶湖", "新幹線", "寿司", "将棋", "俳句", "歌舞伎", "相撲",
}

var concepts = []string{
	"日本", "都市", "山", "湖", "鉄道", "料理", "文化", "歴史",
	"芸術", "スポーツ", "県", "駅", "寺", "神社", "大学", "川",
}

var predicates = []string{
	"http://dbpedia.org/ontology/wikiPageWikiLink",
	"http://dbpedia.org/ontology/country",
	"http://dbpedia.org/ontology/location",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
	"http://www.w3.org/2002/07/owl#sameAs",
}

var externals = []string{
	"http://www.w3.org/2002/07/owl#Thing",
	"http://dbpedia.org/ontology/Place",
	"http://www.wikidata.org/entity/Q17",
	"http://schema.org/City",
}
