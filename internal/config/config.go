// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the runtime's YAML configuration.
//
// Follows pkg/config's shape: every section follows the
// SetDefaults()/Validate() pair so a caller can construct a Config in
// code (tests, embedding) without going through YAML, and loading from
// disk is just unmarshal + expand + SetDefaults + Validate.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the voice-agent runtime.
type Config struct {
	Tokenizer    TokenizerConfig     `yaml:"tokenizer,omitempty"`
	Splitter     SplitterConfig      `yaml:"splitter,omitempty"`
	VectorStore  VectorStoreConfig   `yaml:"vector_store,omitempty"`
	Embedder     EmbedderConfig      `yaml:"embedder,omitempty"`
	STT          STTConfig           `yaml:"stt,omitempty"`
	Database     DatabaseConfig      `yaml:"database,omitempty"`
	Integrations []IntegrationConfig `yaml:"integrations,omitempty"`
	Logging      LoggingConfig       `yaml:"logging,omitempty"`
}

type TokenizerConfig struct {
	// Encoding names the tiktoken encoding table (e.g. "cl100k_base").
	Encoding  string `yaml:"encoding,omitempty"`
	CacheSize int    `yaml:"cache_size,omitempty"`
}

type SplitterConfig struct {
	// Density selects a preset: "high", "standard", "low", or "auto".
	Density       string `yaml:"density,omitempty"`
	TargetTokens  int    `yaml:"target_tokens,omitempty"`
	MinTokens     int    `yaml:"min_tokens,omitempty"`
	MaxTokens     int    `yaml:"max_tokens,omitempty"`
	OverlapTokens int    `yaml:"overlap_tokens,omitempty"`
}

type VectorStoreConfig struct {
	// Type selects the provider: "chromem", "qdrant", "pinecone".
	Type        string `yaml:"type"`
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	PersistPath string `yaml:"persist_path,omitempty"`
	IndexName   string `yaml:"index_name,omitempty"` // pinecone
}

type EmbedderConfig struct {
	Provider  string `yaml:"provider,omitempty"` // "openai", "ollama"
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

type STTConfig struct {
	WebSocketURL   string        `yaml:"websocket_url"`
	APIKey         string        `yaml:"api_key,omitempty"`
	SampleRate     int           `yaml:"sample_rate,omitempty"`
	PrewarmConns   int           `yaml:"prewarm_conns,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	MaxSessionTime time.Duration `yaml:"max_session_duration,omitempty"`
}

type DatabaseConfig struct {
	// Driver selects the backing SQL driver: "sqlite3", "postgres", "mysql".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type IntegrationConfig struct {
	ID         string            `yaml:"id"`
	Plugin     string            `yaml:"plugin"` // "sheets", "slack", "webhook"
	WebhookURL string            `yaml:"webhook_url,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// SetDefaults fills in every unset field with a production-sane default.
func (c *Config) SetDefaults() {
	if c.Tokenizer.Encoding == "" {
		c.Tokenizer.Encoding = "cl100k_base"
	}
	if c.Tokenizer.CacheSize <= 0 {
		c.Tokenizer.CacheSize = 10_000
	}

	if c.Splitter.Density == "" {
		c.Splitter.Density = "standard"
	}
	if c.Splitter.TargetTokens <= 0 {
		c.Splitter.TargetTokens = 384
	}
	if c.Splitter.MinTokens <= 0 {
		c.Splitter.MinTokens = 192
	}
	if c.Splitter.MaxTokens <= 0 {
		c.Splitter.MaxTokens = 512
	}
	if c.Splitter.OverlapTokens <= 0 {
		c.Splitter.OverlapTokens = 64
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = "chromem"
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "openai"
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-3-small"
	}
	if c.Embedder.Dimension <= 0 {
		c.Embedder.Dimension = 1536
	}

	if c.STT.SampleRate <= 0 {
		c.STT.SampleRate = 16000
	}
	if c.STT.ConnectTimeout <= 0 {
		c.STT.ConnectTimeout = 10 * time.Second
	}
	if c.STT.MaxSessionTime <= 0 {
		c.STT.MaxSessionTime = 300 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "voiceagent.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Splitter.MinTokens > c.Splitter.TargetTokens {
		return fmt.Errorf("splitter: min_tokens (%d) must not exceed target_tokens (%d)", c.Splitter.MinTokens, c.Splitter.TargetTokens)
	}
	if c.Splitter.TargetTokens > c.Splitter.MaxTokens {
		return fmt.Errorf("splitter: target_tokens (%d) must not exceed max_tokens (%d)", c.Splitter.TargetTokens, c.Splitter.MaxTokens)
	}
	switch c.VectorStore.Type {
	case "chromem", "qdrant", "pinecone":
	default:
		return fmt.Errorf("vector_store: unknown type %q", c.VectorStore.Type)
	}
	if c.VectorStore.Type == "qdrant" && c.VectorStore.Host == "" {
		return fmt.Errorf("vector_store: host is required for qdrant")
	}
	if c.VectorStore.Type == "pinecone" && c.VectorStore.APIKey == "" {
		return fmt.Errorf("vector_store: api_key is required for pinecone")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	for _, ig := range c.Integrations {
		switch ig.Plugin {
		case "sheets", "slack", "webhook":
		default:
			return fmt.Errorf("integration %q: unknown plugin %q", ig.ID, ig.Plugin)
		}
	}
	return nil
}

// Load reads and parses a YAML config file, expanding environment
// variables and applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.expand()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}
