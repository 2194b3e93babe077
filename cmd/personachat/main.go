package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"personachat/internal/adapter/catalog"
	"personachat/internal/adapter/llm"
	"personachat/internal/adapter/storage"
	"personachat/internal/adapter/tui/chat"
	"personachat/internal/domain"
	"personachat/internal/infra/config"
	"personachat/internal/infra/logger"
	"personachat/internal/infra/tracer"
	"personachat/internal/usecase"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "key":
			if err := runKey(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "key: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`personachat - Persona-driven chat with context management

USAGE:
    personachat [COMMAND] [FLAGS]

COMMANDS:
    key set PROVIDER KEY    Store an API key (anthropic | openai)
    key remove PROVIDER     Remove a stored API key

    (no command) - Launch the chat UI

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./config.yaml)
    --provider NAME    LLM provider (anthropic, openai)
    --model NAME       Model name (e.g. claude-3-5-sonnet-20241022, gpt-4o)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: PERSONACHAT_* variables override config;
    ANTHROPIC_API_KEY / OPENAI_API_KEY supply credentials.`)
}

func run(args []string) error {
	fs := flag.NewFlagSet("personachat", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "config file path")
	providerFlag := fs.String("provider", "anthropic", "LLM provider")
	modelFlag := fs.String("model", "", "model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(ctx)

	providerType, err := domain.ParseProviderType(*providerFlag)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	counter := usecase.NewTokenCounter(cfg.Tokenizer.Kind, cfg.Tokenizer.Encoding, log)
	factory := llm.NewFactory(cfg.Providers, store, counter, log)

	registry := usecase.NewRegistry(
		cfg.Conversation,
		counter,
		store,
		factory.New,
		cat.Lookup,
		log,
	)
	if err := registry.RestoreAll(ctx); err != nil {
		log.Warn("restore failed, starting empty", "error", err)
	}

	var reaper *cron.Cron
	if cfg.Reaper.Enabled {
		maxIdle, err := time.ParseDuration(cfg.Reaper.MaxIdle)
		if err != nil {
			return fmt.Errorf("parse reaper max_idle: %w", err)
		}
		reaper = cron.New()
		if _, err := reaper.AddFunc(cfg.Reaper.Schedule, func() {
			registry.ReapIdle(maxIdle)
		}); err != nil {
			return fmt.Errorf("schedule reaper: %w", err)
		}
		reaper.Start()
		defer reaper.Stop()
	}

	model := chat.New(chat.Deps{
		Registry:     registry,
		Catalog:      cat,
		ProviderType: providerType,
		Model:        *modelFlag,
		Logger:       log,
	})

	log.Info("starting chat UI",
		"provider", string(providerType),
		"personas", len(cat.Personas()),
	)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// runKey manages stored API credentials without launching the UI.
func runKey(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: personachat key set PROVIDER KEY | key remove PROVIDER")
	}

	cfg, err := config.Load("./config.yaml")
	if err != nil {
		return err
	}
	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := storage.NewSQLiteStore(cfg.Storage.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	providerType, err := domain.ParseProviderType(args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: personachat key set PROVIDER KEY")
		}
		if err := store.Set(providerType, args[2]); err != nil {
			return err
		}
		fmt.Printf("stored key for %s\n", providerType)
		return nil
	case "remove":
		if err := store.Remove(providerType); err != nil {
			return err
		}
		fmt.Printf("removed key for %s\n", providerType)
		return nil
	default:
		return fmt.Errorf("unknown key subcommand: %s", args[0])
	}
}
