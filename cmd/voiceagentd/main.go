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

// Command voiceagentd is the voice-agent runtime daemon.
//
// Usage:
//
//	voiceagentd serve --config config.yaml
//	voiceagentd ingest --config config.yaml --agent a1 --file notes.pdf
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/voiceagent/internal/agentconfig"
	"github.com/kadirpekel/voiceagent/internal/agentlifecycle"
	"github.com/kadirpekel/voiceagent/internal/calltrack"
	"github.com/kadirpekel/voiceagent/internal/chunking"
	"github.com/kadirpekel/voiceagent/internal/config"
	"github.com/kadirpekel/voiceagent/internal/dbrpc"
	"github.com/kadirpekel/voiceagent/internal/docparse"
	"github.com/kadirpekel/voiceagent/internal/embed"
	"github.com/kadirpekel/voiceagent/internal/functionschema"
	"github.com/kadirpekel/voiceagent/internal/ingest"
	"github.com/kadirpekel/voiceagent/internal/metrics"
	"github.com/kadirpekel/voiceagent/internal/splitter"
	"github.com/kadirpekel/voiceagent/internal/store"
	"github.com/kadirpekel/voiceagent/internal/stt"
	"github.com/kadirpekel/voiceagent/internal/tokenizer"
	"github.com/kadirpekel/voiceagent/internal/toolexec"
	"github.com/kadirpekel/voiceagent/internal/vectorindex"
	"github.com/kadirpekel/voiceagent/internal/voicelog"
	"github.com/kadirpekel/voiceagent/internal/voiceknowledge"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve  ServeCmd  `cmd:"" help:"Start the voice-agent runtime."`
	Ingest IngestCmd `cmd:"" help:"Ingest one file into an agent's knowledge base."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"voiceagent.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (json, text)." default:"json"`
}

// runtime bundles every component C1-C15 wires together, built once
// from cfg and shared by both the serve and ingest commands.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tok        *tokenizer.Tokenizer
	chunker    *chunking.Service
	parser     *docparse.Parser
	index      vectorindex.Index
	ingestor   *ingest.Orchestrator
	dbPool     *store.Pool
	db         *store.Store
	agents     *agentconfig.Service
	lifecycle  *agentlifecycle.Service
	knowledge  *voiceknowledge.Service
	tracker    *calltrack.Tracker
	schemas    *functionschema.Registry
	tools      *toolexec.Builder
	sttPool    *stt.Pool
}

func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	m := metrics.New("voiceagent")

	tok, err := tokenizer.New(cfg.Tokenizer.Encoding, cfg.Tokenizer.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}

	preset := splitter.Presets[splitter.Density(cfg.Splitter.Density)]
	if cfg.Splitter.TargetTokens > 0 {
		preset = splitter.Preset{
			TargetTokens:  cfg.Splitter.TargetTokens,
			MinTokens:     cfg.Splitter.MinTokens,
			MaxTokens:     cfg.Splitter.MaxTokens,
			OverlapTokens: cfg.Splitter.OverlapTokens,
		}
	}
	chunker := chunking.New(tok, preset)
	parser := docparse.New()

	backend, err := vectorindex.NewBackend(vectorindex.BackendConfig{
		Type:      vectorindex.ProviderType(cfg.VectorStore.Type),
		Dimension: cfg.Embedder.Dimension,
		Chromem: vectorindex.ChromemConfig{
			PersistPath: cfg.VectorStore.PersistPath,
		},
		Qdrant: vectorindex.QdrantConfig{
			Host:   cfg.VectorStore.Host,
			Port:   cfg.VectorStore.Port,
			APIKey: cfg.VectorStore.APIKey,
		},
		Pinecone: vectorindex.PineconeConfig{
			APIKey:    cfg.VectorStore.APIKey,
			IndexName: cfg.VectorStore.IndexName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build vector backend: %w", err)
	}
	embedder := embed.NewOpenAIEmbedder(cfg.Embedder.APIKey, cfg.Embedder.BaseURL, cfg.Embedder.Model, cfg.Embedder.Dimension)
	index := vectorindex.New(backend, embedder)
	ingestor := ingest.New(parser, chunker, index)

	dbPool := store.NewPool(logger)
	db, err := store.Open(dbPool, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	agentStore := store.NewAgentStore(db)

	agents, err := agentconfig.New(agentStore, 1000, 1000)
	if err != nil {
		return nil, fmt.Errorf("build agent cache: %w", err)
	}

	var businessInfoLookup voiceknowledge.BusinessInfoLookup
	knowledge, err := voiceknowledge.New(index, businessInfoLookup, logger, 1000, 1000)
	if err != nil {
		return nil, fmt.Errorf("build voice knowledge service: %w", err)
	}

	tracker := calltrack.New()
	schemas := functionschema.New()
	tools := toolexec.NewBuilder(knowledge, tracker, schemas)
	lifecycle := agentlifecycle.New(agents, index, db)

	sttPool := stt.NewPool(cfg.STT.WebSocketURL, logger)
	if cfg.STT.PrewarmConns > 0 {
		sttPool.Prewarm(context.Background(), stt.StreamConfig{
			APIKey:     cfg.STT.APIKey,
			SampleRate: cfg.STT.SampleRate,
		}, cfg.STT.PrewarmConns)
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		tok:       tok,
		chunker:   chunker,
		parser:    parser,
		index:     index,
		ingestor:  ingestor,
		dbPool:    dbPool,
		db:        db,
		agents:    agents,
		lifecycle: lifecycle,
		knowledge: knowledge,
		tracker:   tracker,
		schemas:   schemas,
		tools:     tools,
		sttPool:   sttPool,
	}, nil
}

func (rt *runtime) Close() {
	_ = rt.sttPool.Close()
	_ = rt.dbPool.Close()
}

// ServeCmd starts the HTTP surface: health, metrics, and the
// document-store RPC façade.
type ServeCmd struct {
	Addr string `help:"HTTP listen address." default:":8080"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	logger, err := initLogger(cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	voicelog.Init(logger)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", rt.metrics.Handler())
	rpcServer := dbrpc.New(rt.db, logger)
	rpcServer.Routes(r)

	server := &http.Server{Addr: c.Addr, Handler: r}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		cancel()
	}()

	logger.Info("voiceagentd listening", "addr", c.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-ctx.Done()
	return nil
}

// IngestCmd runs one file through the ingestion pipeline.
type IngestCmd struct {
	Agent string `required:"" help:"Agent ID to ingest into."`
	File  string `required:"" type:"existingfile" help:"File to ingest."`
}

func (c *IngestCmd) Run(cli *CLI) error {
	logger, err := initLogger(cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	voicelog.Init(logger)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	start := time.Now()
	result, err := rt.ingestor.IngestFileIdempotent(context.Background(), c.File, ingest.Options{AgentID: c.Agent})
	rt.metrics.RecordIngestion("file", outcomeLabel(err), result.ChunksCreated+result.ChunksUpdated, time.Since(start))
	if err != nil {
		return fmt.Errorf("ingest %s: %w", c.File, err)
	}

	logger.Info("ingestion complete", "file", c.File, "created", result.ChunksCreated, "updated", result.ChunksUpdated, "deleted", result.ChunksDeleted)
	return nil
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func initLogger(level, format string) (*slog.Logger, error) {
	return voicelog.New(voicelog.ParseLevel(level), format, os.Stderr), nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("voiceagentd"),
		kong.Description("Multi-tenant real-time voice-agent runtime"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
