package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tutoriq/tutoriq-be/internal/ai"
	"github.com/tutoriq/tutoriq-be/internal/api"
	"github.com/tutoriq/tutoriq-be/internal/auth"
	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/maintenance"
	"github.com/tutoriq/tutoriq-be/internal/prompt"
	"github.com/tutoriq/tutoriq-be/internal/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	// Set up services
	userService := services.NewUserService(db)
	profileService := services.NewProfileService(db)
	conversationService := services.NewConversationService(db)
	gemini := ai.NewGeminiClient(cfg.AIModel, cfg.AITimeout)
	chatService := services.NewChatService(profileService, conversationService, prompt.NewComposer(), gemini)

	scheduler, err := maintenance.NewScheduler(conversationService, db, cfg.RetentionDays, cfg.MaintenanceSchedule)
	if err != nil {
		return err
	}

	staticDir := cfg.StaticDir
	if info, err := os.Stat(staticDir); staticDir != "" && (err != nil || !info.IsDir()) {
		log.Warn().Str("static_dir", staticDir).Msg("Static directory not found; serving the API only")
		staticDir = ""
	}

	router := api.NewRouter(api.Dependencies{
		Users:         userService,
		Profiles:      profileService,
		Conversations: conversationService,
		Chat:          chatService,
		DB:            db,
		Issuer:        auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL, cfg.Production()),
	}, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      staticDir,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("model", gemini.Model()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}
