package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tutoriq/tutoriq-be/internal/ai"
	"github.com/tutoriq/tutoriq-be/internal/database"
	"github.com/tutoriq/tutoriq-be/internal/models"
	"github.com/tutoriq/tutoriq-be/internal/services"
)

const diagnosePrompt = "Reply with one short sentence confirming you are reachable."

func newDiagnoseCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check a stored Gemini API key against the provider",
		Long: `Looks up a Gemini API key saved in a study profile, lists the models it can
access and runs a one-line test generation with the configured model.

Without --email the first profile that has a key is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account whose key should be checked")
	return cmd
}

func runDiagnose(ctx context.Context, out io.Writer, email string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	profile, err := findProfile(ctx, services.NewUserService(db), services.NewProfileService(db), email)
	if err != nil {
		return err
	}

	gemini := ai.NewGeminiClient(cfg.AIModel, cfg.AITimeout)
	fmt.Fprintf(out, "Account: %s\n", profile.Email)
	fmt.Fprintf(out, "Key:     %s\n", revealEdges(profile.APIKey))
	fmt.Fprintf(out, "Model:   %s\n\n", gemini.Model())

	available, err := gemini.ListModels(ctx, profile.APIKey)
	if err != nil {
		pe := ai.Classify(err)
		fmt.Fprintf(out, "Listing models failed: %s\n  %s\n", pe.Message, pe.Detail)
	} else {
		fmt.Fprintf(out, "Models available to this key (%d):\n", len(available))
		for _, name := range available {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}

	fmt.Fprintln(out)
	reply, err := gemini.Generate(ctx, profile.APIKey, diagnosePrompt)
	if err != nil {
		pe := ai.Classify(err)
		fmt.Fprintf(out, "Test generation failed: %s\n  %s\n", pe.Message, pe.Detail)
		return pe
	}
	fmt.Fprintf(out, "Test generation OK: %s\n", strings.TrimSpace(reply))
	return nil
}

type profileFinder interface {
	GetProfile(ctx context.Context, userID int64) (models.Profile, error)
	FirstProfileWithKey(ctx context.Context) (models.Profile, error)
}

func findProfile(ctx context.Context, users services.UserServiceProvider, profiles profileFinder, email string) (models.Profile, error) {
	if email == "" {
		profile, err := profiles.FirstProfileWithKey(ctx)
		if errors.Is(err, services.ErrNotFound) {
			return models.Profile{}, errors.New("no profile has a Gemini API key stored")
		}
		return profile, err
	}

	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return models.Profile{}, fmt.Errorf("no account for %s", services.NormalizeEmail(email))
		}
		return models.Profile{}, err
	}
	profile, err := profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return models.Profile{}, err
	}
	if profile.APIKey == "" {
		return models.Profile{}, fmt.Errorf("%s has no Gemini API key stored", user.Email)
	}
	return profile, nil
}

// revealEdges shows the first and last four characters of a key.
func revealEdges(key string) string {
	r := []rune(key)
	if len(r) <= 8 {
		return strings.Repeat(string(models.SecretMaskRune), len(r))
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}
