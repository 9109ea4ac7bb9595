package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Glossary.MaxHighlights)
	assert.True(t, cfg.Glossary.Fuzzy.Enabled)
	assert.Equal(t, 5, cfg.Glossary.Fuzzy.MinLength)
	assert.Equal(t, 6, cfg.Glossary.Fuzzy.MaxAdditions)
	assert.Equal(t, []string{"Front", "Back", "Extra"}, cfg.Glossary.ScanFields)
	assert.Equal(t, ChangelogBolt, cfg.Changelog.Backend)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	yml := `
glossary:
  termsDir: /srv/terms
  maxHighlights: 25
  muteTags: "pharm, micro"
  fuzzy:
    enabled: false
    maxAdditions: 2
server:
  writeTimeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/terms", cfg.Glossary.TermsDir)
	assert.Equal(t, 25, cfg.Glossary.MaxHighlights)
	assert.Equal(t, "pharm, micro", cfg.Glossary.MuteTags)
	assert.False(t, cfg.Glossary.Fuzzy.Enabled)
	assert.Equal(t, 2, cfg.Glossary.Fuzzy.MaxAdditions)
	assert.Equal(t, 5, cfg.Glossary.Fuzzy.MinLength, "unset nested fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GLOSSARY_TERMS_DIR", "/env/terms")
	t.Setenv("GLOSSARY_SCAN_FIELDS", "Text, Extra ,")
	t.Setenv("GLOSSARY_FUZZY_MAX_ADD", "3")
	t.Setenv("GLOSSARY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/terms", cfg.Glossary.TermsDir)
	assert.Equal(t, []string{"Text", "Extra"}, cfg.Glossary.ScanFields)
	assert.Equal(t, 3, cfg.Glossary.Fuzzy.MaxAdditions)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Glossary.MaxHighlights = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Changelog.Backend = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Glossary.Fuzzy.MaxAdditions = -1
	assert.Error(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,, b "))
	assert.Empty(t, SplitList(""))
}

func TestValidate_AdminRateLimit(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30, cfg.Server.AdminRateLimit)
	require.NoError(t, cfg.Validate())

	cfg.Server.AdminRateLimit = 0
	assert.ErrorContains(t, cfg.Validate(), "adminRateLimit")
}
