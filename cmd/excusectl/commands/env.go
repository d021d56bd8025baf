// Package commands implements the excusectl subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/config"
	"github.com/benvon/excuse-deck/internal/database"
	"github.com/benvon/excuse-deck/internal/logger"
	"github.com/benvon/excuse-deck/internal/services/excuse"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultOwner owns the decision log of the CLI
const DefaultOwner = "excusectl"

// AddPersistentFlags registers the flags shared by every subcommand
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("owner", DefaultOwner, "decision log owner (a server session id to inspect a browser's log)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
}

// env is what a subcommand needs from the configuration
type env struct {
	cfg    *config.Config
	owner  string
	logger *zap.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	owner, _ := cmd.Flags().GetString("owner")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	zapLogger, err := logger.NewConsoleLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, owner: owner, logger: zapLogger}, nil
}

// excuses builds the excuse service the server would use
func (e *env) excuses() *excuse.Service {
	local := excuse.NewLocalGenerator()
	if e.cfg.ExcusePhrasesFile != "" {
		if p, err := excuse.LoadPhrases(e.cfg.ExcusePhrasesFile); err == nil {
			local = excuse.NewLocalGeneratorWithPhrases(p, nil)
		} else {
			e.logger.Warn("failed_to_load_excuse_phrases", zap.Error(err))
		}
	}

	var remote excuse.Generator
	if e.cfg.ExcuseProvider != config.ExcuseLocal {
		registry := excuse.NewRegistry()
		excuse.RegisterDefaults(registry, e.logger, false)
		g, err := registry.Build(e.cfg.ExcuseProvider, map[string]string{
			"api_key":  e.cfg.OpenAIKey,
			"base_url": e.cfg.AIBaseURL,
			"model":    e.cfg.AIModel,
			"url":      e.cfg.ExcuseEndpointURL,
		})
		if err != nil {
			e.logger.Warn("excuse_provider_unavailable", zap.Error(err))
		} else {
			remote = g
		}
	}
	return excuse.NewService(remote, local, e.cfg.ExcuseTimeout, e.logger)
}

// source builds the configured event source
func (e *env) source() calendar.Source {
	switch e.cfg.CalendarSource {
	case config.CalendarGoogle:
		oauth := calendar.NewOAuth(e.cfg.GoogleClientID, e.cfg.GoogleClientSecret, e.cfg.GoogleRedirectURI)
		return calendar.NewGoogleSource(oauth, e.logger, calendar.WithCalendarID(e.cfg.GoogleCalendarID))
	case config.CalendarICS:
		return calendar.NewICSSource(e.cfg.ICSURL, nil, e.logger)
	default:
		return calendar.NewMockSource()
	}
}

// withTokens attaches provider tokens given on the command line
func withTokens(ctx context.Context, accessToken, refreshToken string) context.Context {
	if accessToken == "" && refreshToken == "" {
		return ctx
	}
	return calendar.WithToken(ctx, calendar.NewTokenHolder(&oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}))
}

// decisionStore opens the configured decision store
func (e *env) decisionStore(ctx context.Context) (store.DecisionStore, func(), error) {
	switch e.cfg.DecisionStore {
	case config.StoreRedis:
		s, err := store.NewRedisStoreFromURL(ctx, e.cfg.RedisURL, e.cfg.DecisionTTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StorePostgres:
		db, err := database.New(e.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return database.NewDecisionRepository(db), func() { _ = db.Close() }, nil
	default:
		e.logger.Warn("decision_store_in_memory", zap.String("hint", "set DECISION_STORE=redis or postgres to keep decisions"))
		s := store.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	}
}
