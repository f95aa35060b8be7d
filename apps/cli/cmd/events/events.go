// Package events exposes calendar maintenance commands.
package events

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/photohub/photohub-saas/apps/cli/internal/cliutil"
	eventsrepo "github.com/photohub/photohub-saas/domains/events/be/repo"
	eventsservice "github.com/photohub/photohub-saas/domains/events/be/service"
	"github.com/photohub/photohub-saas/domains/events/be/wire"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Calendar utilities",
	}
	cmd.AddCommand(exportCommand())
	return cmd
}

// exportParams are the flags of "events export".
type exportParams struct {
	photographer string
	start        string
	end          string
	category     string
	timezone     string
	language     string
	uidDomain    string
	urlBase      string
}

func exportCommand() *cobra.Command {
	var (
		databaseURL string
		out         string
		params      exportParams
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Write a photographer's events as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, closeDB, err := cliutil.OpenDB(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeDB()

			store, err := persistence.NewEventStore(db)
			if err != nil {
				return err
			}
			svc := eventsservice.New(eventsrepo.NewPostgresRepository(store), eventsservice.Options{})

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return runExport(ctx, svc, params, w, time.Now().UTC())
		},
	}

	cliutil.DatabaseURLFlag(c, &databaseURL)
	c.Flags().StringVar(&params.photographer, "photographer", "", "Photographer id owning the events")
	c.Flags().StringVar(&params.start, "start", "", "Window start (date or RFC 3339); defaults around today")
	c.Flags().StringVar(&params.end, "end", "", "Window end, exclusive (date or RFC 3339)")
	c.Flags().StringVar(&params.category, "category", "", "Only events of this category (photoshoot or post)")
	c.Flags().StringVar(&params.timezone, "timezone", "Europe/Moscow", "Time zone for bare dates and all-day events")
	c.Flags().StringVar(&params.language, "language", "ru", "Language of category labels")
	c.Flags().StringVar(&params.uidDomain, "uid-domain", "photohub.app", "Domain qualifying event UIDs")
	c.Flags().StringVar(&params.urlBase, "url-base", "", "Prefix for event detail URLs")
	c.Flags().StringVarP(&out, "out", "o", "-", "Output file; - writes to stdout")
	_ = c.MarkFlagRequired("photographer")

	return c
}

func runExport(ctx context.Context, svc eventsservice.Service, p exportParams, w io.Writer, now time.Time) error {
	photographerID, err := uuid.Parse(strings.TrimSpace(p.photographer))
	if err != nil {
		return fmt.Errorf("invalid --photographer: %w", err)
	}
	loc, err := time.LoadLocation(p.timezone)
	if err != nil {
		return fmt.Errorf("invalid --timezone: %w", err)
	}

	opts := eventsservice.QueryOptions{}
	if opts.Start, err = parseBound(p.start, loc); err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	if opts.End, err = parseBound(p.end, loc); err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if p.category != "" {
		c, err := eventsservice.ParseCategory(p.category)
		if err != nil {
			return err
		}
		opts.Category = &c
	}

	ctx = tenant.WithScope(ctx, tenant.For(photographerID))
	found, err := svc.Query(ctx, opts)
	if err != nil {
		return err
	}

	return wire.WriteICS(w, found, wire.ICSOptions{
		Options: wire.Options{
			Location: loc,
			URLBase:  p.urlBase,
			Language: wire.MatchLanguage(p.language),
		},
		UIDDomain: p.uidDomain,
		Stamp:     now,
	})
}

func parseBound(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a date nor an RFC 3339 timestamp", raw)
	}
	return &t, nil
}
