package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"notebook-rag/internal/config"
	"notebook-rag/internal/embedding"
	"notebook-rag/internal/index"
	"notebook-rag/internal/llmservice"
	"notebook-rag/internal/parser"
	"notebook-rag/internal/rag"
	"notebook-rag/internal/retriever"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	notebook := flag.String("notebook", "", "Notebook identifier")
	create := flag.Bool("create", false, "Create the notebook if it does not exist")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Question to answer")
	docType := flag.String("generate", "", "Document type to generate (exam, study_guide, briefing, faq, timeline)")
	format := flag.String("format", "", "Extra formatting instructions for document generation")
	flag.Parse()

	if *notebook == "" {
		log.Fatal().Msg("Please provide a notebook id with the -notebook flag")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	svc, err := buildService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building service")
	}

	ctx := context.Background()

	switch {
	case *create:
		if err := svc.EnsureNotebook(ctx, *notebook); err != nil {
			log.Fatal().Err(err).Msg("Error creating notebook")
		}
		log.Info().Str("notebook", *notebook).Msg("Notebook ready")
	case *filePath != "":
		if err := svc.IngestFile(ctx, *notebook, *filePath); err != nil {
			log.Fatal().Err(err).Msg("Error ingesting file")
		}
	case *query != "":
		response, err := svc.Answer(ctx, *notebook, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering query")
		}
		fmt.Printf("%s\n", response)
	case *docType != "":
		response, err := svc.GenerateDocument(ctx, *notebook, *docType, *format)
		if err != nil {
			log.Fatal().Err(err).Msg("Error generating document")
		}
		fmt.Printf("%s\n", response)
	default:
		log.Fatal().Msg("Please provide one of -create, -file, -query or -generate")
	}
}

func buildService(cfg *config.Config) (*rag.Service, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedder: %w", err)
	}

	llm, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing chat client: %w", err)
	}

	var vectorIndex index.VectorIndex
	switch cfg.Storage.Backend {
	case "chromem":
		vectorIndex = index.NewChromemIndex(cfg.Storage.Path, embedder)
	case "pgvector":
		sqldb, err := index.ConnectPostgres(cfg.Storage.PostgresDSN, cfg.Storage.PostgresPassword)
		if err != nil {
			return nil, fmt.Errorf("error connecting to postgres: %w", err)
		}
		pg := index.NewPgVectorIndex(sqldb, embedder, cfg.Storage.Debug)
		if err := pg.Init(context.Background()); err != nil {
			return nil, fmt.Errorf("error initializing postgres tables: %w", err)
		}
		vectorIndex = pg
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	store := index.NewStore(vectorIndex, cfg.RAG.BatchSize)
	ret := retriever.New(vectorIndex)
	return rag.NewService(cfg, parser.NewRegistry(), store, ret, llm), nil
}
