package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/backend"
	"github.com/mananjary-mi/family-portal/pkg/config"
	"github.com/mananjary-mi/family-portal/pkg/genealogy"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/services"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	var (
		snapshotPath string
		rootID       int64
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the family view of one person from a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			logger := opts.logger()
			defer func() { _ = logger.Sync() }()

			view := genealogy.NewBuilder(logger).Build(snap.Persons, snap.Relations, rootID)
			if view == nil {
				return fmt.Errorf("person %d is not in the snapshot", rootID)
			}
			return renderView(cmd.OutOrStdout(), opts.format, view)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (JSON, or YAML with a .yaml extension)")
	cmd.Flags().Int64VarP(&rootID, "root", "r", 0, "ID of the person at the centre of the view")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("root")
	return cmd
}

func newRelationsCmd(opts *globalOptions) *cobra.Command {
	var (
		snapshotPath string
		userID       int64
	)

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List the relations of a snapshot as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			relations := snap.Relations
			if userID != 0 {
				relations = touching(relations, userID)
			}
			return renderRows(cmd.OutOrStdout(), opts.format, genealogy.Tabulate(snap.Persons, relations))
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (JSON, or YAML with a .yaml extension)")
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Only list relations involving this person")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func touching(relations []models.Relation, id int64) []models.Relation {
	out := make([]models.Relation, 0, len(relations))
	for _, rel := range relations {
		if rel.PersonA == id || rel.PersonB == id {
			out = append(out, rel)
		}
	}
	return out
}

func newFetchCmd(opts *globalOptions) *cobra.Command {
	var (
		backendURL string
		email      string
		password   string
		userType   string
		rootID     int64
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Log in to the community backend and print a family view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("FAMILYTREE_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required (--password or FAMILYTREE_PASSWORD)")
			}

			logger := opts.logger()
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := backend.NewClient(config.BackendConfig{
				URL:        backendURL,
				Timeout:    timeout,
				MaxRetries: 3,
			}, logger)

			view, err := fetchView(ctx, client, email, password, userType, rootID, logger)
			if err != nil {
				return err
			}
			return renderView(cmd.OutOrStdout(), opts.format, view)
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend", "http://localhost:8000", "Community backend base URL")
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&userType, "user-type", "", "Account type hint: super_admin, admin or user")
	cmd.Flags().Int64VarP(&rootID, "root", "r", 0, "ID of the person at the centre of the view (default: the logged-in member)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// fetchView logs in, builds the view through the family tree service and
// logs out again.
func fetchView(ctx context.Context, client *backend.Client, email, password, userType string, rootID int64, logger *zap.Logger) (*models.FamilyView, error) {
	login, err := client.Login(ctx, email, password, userType)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	ctx = session.NewContext(ctx, &session.Session{
		AccessToken: login.AccessToken,
		UserID:      login.Account.ID,
		UserType:    login.Account.UserType,
		Email:       login.Account.Email,
	})
	defer func() {
		if err := client.Logout(ctx); err != nil {
			logger.Warn("Logout failed", zap.Error(err))
		}
	}()

	if rootID == 0 {
		rootID = login.Account.ID
	}

	familyService := services.NewFamilyTreeService(client, genealogy.NewBuilder(logger), nil, logger)
	return familyService.GetFamilyView(ctx, rootID)
}
