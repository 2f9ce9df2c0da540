package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultSPARQLEndpoint, cfg.SPARQL.Endpoint)
	assert.Equal(t, defaultResourcePrefix, cfg.SPARQL.ResourcePrefix)
	assert.Equal(t, 30*time.Second, cfg.SPARQL.Timeout)
	assert.Equal(t, 1, cfg.SPARQL.Hops)
	assert.Equal(t, OnErrorAbort, cfg.Harvest.OnError)
	assert.Equal(t, DefaultIncludePatterns, cfg.Harvest.IncludePatterns)
	assert.Equal(t, DefaultExcludePatterns, cfg.Harvest.ExcludePatterns)
	assert.Equal(t, "all", cfg.Harvest.MergedName)
	assert.Equal(t, "data", cfg.Output.Root)
	assert.Equal(t, "terms", cfg.Output.Category)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPARQL_ENDPOINT", "http://localhost:8890/sparql")
	t.Setenv("SPARQL_TIMEOUT", "5s")
	t.Setenv("SPARQL_RATE_LIMIT", "0.5")
	t.Setenv("SPARQL_HOPS", "2")
	t.Setenv("HARVEST_WORKERS", "8")
	t.Setenv("HARVEST_ON_ERROR", "SKIP")
	t.Setenv("HARVEST_INCLUDE", `^http://a/ ^http://b/`)
	t.Setenv("HARVEST_EXCLUDE", "")
	t.Setenv("HARVEST_MERGE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8890/sparql", cfg.SPARQL.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.SPARQL.Timeout)
	assert.InDelta(t, 0.5, cfg.SPARQL.RateLimit, 1e-9)
	assert.Equal(t, 2, cfg.SPARQL.Hops)
	assert.Equal(t, 8, cfg.Harvest.Workers)
	assert.Equal(t, OnErrorSkip, cfg.Harvest.OnError)
	assert.Equal(t, []string{`^http://a/`, `^http://b/`}, cfg.Harvest.IncludePatterns)
	assert.Empty(t, cfg.Harvest.ExcludePatterns)
	assert.True(t, cfg.Harvest.Merge)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad hops":      {"SPARQL_HOPS", "3"},
		"bad policy":    {"HARVEST_ON_ERROR", "retry"},
		"bad timeout":   {"SPARQL_TIMEOUT", "soon"},
		"bad rate":      {"SPARQL_RATE_LIMIT", "fast"},
		"bad endpoint":  {"SPARQL_ENDPOINT", "not a url"},
		"bad port":      {"SERVER_PORT", "70000"},
		"zero workers":  {"HARVEST_WORKERS", "0"},
		"bad logformat": {"LOG_FORMAT", "xml"},
		"nested output": {"OUTPUT_CATEGORY", "../private"},
		"dot category":  {"OUTPUT_CATEGORY", ".."},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ObjectStoreRequiresBucket(t *testing.T) {
	t.Setenv("OBJECT_STORE_ENDPOINT", "localhost:9000")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("OBJECT_STORE_BUCKET", "graphs")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "graphs", cfg.ObjectStore.Bucket)
}
