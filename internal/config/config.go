package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RAG      RAGConfig     `yaml:"rag"`
	Storage  StorageConfig `yaml:"storage"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	ChatLLM  LLMConfig     `yaml:"chat_llm"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
}

type StorageConfig struct {
	Backend          string `yaml:"backend"` // chromem or pgvector
	Path             string `yaml:"path"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresPassword string `yaml:"postgres_password"`
	Debug            bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai or ollama
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

const (
	defaultChunkSize    = 300
	defaultChunkOverlap = 100
	defaultBatchSize    = 160
	defaultStoragePath  = "./data"
)

// LoadConfig reads the YAML file, expanding ${VAR} references from the
// environment so secrets like API keys stay out of the file itself.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return nil, fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d", cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.BatchSize == 0 {
		cfg.RAG.BatchSize = defaultBatchSize
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "chromem"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath
	}
}
