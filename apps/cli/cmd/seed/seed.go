// Package seed loads demo fixtures (photographers with their clients, studios and events) into the database.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/apps/cli/internal/cliutil"
	"github.com/photohub/photohub-saas/contracts"
	clientsrepo "github.com/photohub/photohub-saas/domains/clients/be/repo"
	clientsservice "github.com/photohub/photohub-saas/domains/clients/be/service"
	eventsrepo "github.com/photohub/photohub-saas/domains/events/be/repo"
	eventsservice "github.com/photohub/photohub-saas/domains/events/be/service"
	photographersrepo "github.com/photohub/photohub-saas/domains/photographers/be/repo"
	photographersservice "github.com/photohub/photohub-saas/domains/photographers/be/service"
	studiosrepo "github.com/photohub/photohub-saas/domains/studios/be/repo"
	studiosservice "github.com/photohub/photohub-saas/domains/studios/be/service"
	"github.com/photohub/photohub-saas/platform/go/payload"
	"github.com/photohub/photohub-saas/platform/go/persistence"
)

func Command() *cobra.Command {
	var (
		databaseURL string
		file        string
		bucket      string
		timezone    string
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixtures from a YAML file",
		Long:  "Validate a YAML fixture file against contracts/schemas/seed.schema.json and create its records through the domain services.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read fixtures: %w", err)
			}
			fixtures, err := ParseFixtures(raw, payload.NewValidator(contracts.Schemas()))
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Fixtures valid: %d photographers\n", len(fixtures.Photographers))
				return nil
			}

			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid --timezone %q: %w", timezone, err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, closeDB, err := cliutil.OpenDB(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeDB()

			logger := cliutil.Logger(verbose)
			defer func() { _ = logger.Sync() }()

			services, err := buildServices(db, bucket, loc, logger)
			if err != nil {
				return err
			}

			summary, err := NewSeeder(services, logger).Apply(ctx, fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seed complete. Photographers: %d (skipped %d) | Clients: %d | Studios: %d | Events: %d\n",
				summary.Photographers, summary.Skipped, summary.Clients, summary.Studios, summary.Events)
			return nil
		},
	}

	cliutil.DatabaseURLFlag(cmd, &databaseURL)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture file")
	cmd.Flags().StringVar(&bucket, "media-bucket", "photohub-media", "Bucket recorded on studio images")
	cmd.Flags().StringVar(&timezone, "timezone", "Europe/Moscow", "Calendar all-day events are clamped in")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only validate the fixture file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every created record")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func buildServices(db *persistence.TenantDB, bucket string, loc *time.Location, logger *zap.Logger) (Services, error) {
	photographerStore, err := persistence.NewPhotographerStore(db)
	if err != nil {
		return Services{}, err
	}
	clientStore, err := persistence.NewClientStore(db)
	if err != nil {
		return Services{}, err
	}
	studioStore, err := persistence.NewStudioStore(db)
	if err != nil {
		return Services{}, err
	}
	eventStore, err := persistence.NewEventStore(db)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Photographers: photographersservice.New(photographersrepo.NewPostgresRepository(photographerStore), logger),
		Clients:       clientsservice.New(clientsrepo.NewPostgresRepository(clientStore), logger, time.Now),
		Studios:       studiosservice.New(studiosrepo.NewPostgresRepository(studioStore), logger, bucket),
		Events:        eventsservice.New(eventsrepo.NewPostgresRepository(eventStore), eventsservice.Options{Logger: logger, Location: loc}),
	}, nil
}
