package records

import (
	"fmt"
	"os"
	"strconv"
)

// Config controls the semantic store and the repair pass. The document
// store rides on the shared database pool and needs no settings here.
type Config struct {
	// SemanticPath is the directory backing the persistent vector store.
	SemanticPath string `toml:"semantic_path"`
	// Compress gzips persisted vectors on disk.
	Compress bool `toml:"compress"`
	// Embedding selects the embedding function: "local" for the
	// deterministic in-process embedder, "openai" for the remote API.
	Embedding string `toml:"embedding"`
	// EmbeddingDim is the vector width of the local embedder.
	EmbeddingDim int `toml:"embedding_dim"`
	// RepairBatch caps how many pending records one repair pass scans.
	RepairBatch int `toml:"repair_batch"`
}

type Env struct {
	SemanticPath string
	Compress     string
	Embedding    string
	EmbeddingDim string
	RepairBatch  string
}

func DefaultEnv() Env {
	return Env{
		SemanticPath: "RPGER_RECORDS_SEMANTIC_PATH",
		Compress:     "RPGER_RECORDS_COMPRESS",
		Embedding:    "RPGER_RECORDS_EMBEDDING",
		EmbeddingDim: "RPGER_RECORDS_EMBEDDING_DIM",
		RepairBatch:  "RPGER_RECORDS_REPAIR_BATCH",
	}
}

func (c *Config) Finalize(env Env) error {
	c.loadDefaults()
	c.loadEnv(env)
	return c.validate()
}

func (c *Config) Merge(o Config) {
	if o.SemanticPath != "" {
		c.SemanticPath = o.SemanticPath
	}
	if o.Compress {
		c.Compress = o.Compress
	}
	if o.Embedding != "" {
		c.Embedding = o.Embedding
	}
	if o.EmbeddingDim > 0 {
		c.EmbeddingDim = o.EmbeddingDim
	}
	if o.RepairBatch > 0 {
		c.RepairBatch = o.RepairBatch
	}
}

func (c *Config) loadDefaults() {
	if c.SemanticPath == "" {
		c.SemanticPath = "data/semantic"
	}
	if c.Embedding == "" {
		c.Embedding = "local"
	}
	if c.EmbeddingDim <= 0 {
		c.EmbeddingDim = 256
	}
	if c.RepairBatch <= 0 {
		c.RepairBatch = 100
	}
}

func (c *Config) loadEnv(env Env) {
	if v, ok := os.LookupEnv(env.SemanticPath); ok && v != "" {
		c.SemanticPath = v
	}
	if v, ok := os.LookupEnv(env.Compress); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Compress = b
		}
	}
	if v, ok := os.LookupEnv(env.Embedding); ok && v != "" {
		c.Embedding = v
	}
	setInt := func(key string, target *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	setInt(env.EmbeddingDim, &c.EmbeddingDim)
	setInt(env.RepairBatch, &c.RepairBatch)
}

func (c *Config) validate() error {
	switch c.Embedding {
	case "local", "openai":
	default:
		return fmt.Errorf("records: unknown embedding %q", c.Embedding)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("records: embedding dim must be positive, got %d", c.EmbeddingDim)
	}
	if c.RepairBatch <= 0 {
		return fmt.Errorf("records: repair batch must be positive, got %d", c.RepairBatch)
	}
	return nil
}
