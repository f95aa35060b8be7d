package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	clientsservice "github.com/photohub/photohub-saas/domains/clients/be/service"
	eventsservice "github.com/photohub/photohub-saas/domains/events/be/service"
	photographersservice "github.com/photohub/photohub-saas/domains/photographers/be/service"
	studiosservice "github.com/photohub/photohub-saas/domains/studios/be/service"
	"github.com/photohub/photohub-saas/platform/go/requesttrace"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// Services are the domain services a seed run writes through.
type Services struct {
	Photographers photographersservice.Service
	Clients       clientsservice.Service
	Studios       studiosservice.Service
	Events        eventsservice.Service
}

// Summary counts what a seed run created.
type Summary struct {
	Photographers int
	Skipped       int
	Clients       int
	Studios       int
	Events        int
}

// Seeder loads fixtures through the services so every record passes the same validation as API traffic.
type Seeder struct {
	svc    Services
	logger *zap.Logger
}

func NewSeeder(svc Services, logger *zap.Logger) *Seeder {
	if svc.Photographers == nil || svc.Clients == nil || svc.Studios == nil || svc.Events == nil {
		panic("seed: all services are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{svc: svc, logger: logger}
}

// Apply creates every photographer with their clients, studios and events.
// A photographer that already exists is skipped together with their nested records.
func (s *Seeder) Apply(ctx context.Context, fixtures Fixtures) (Summary, error) {
	audit := requesttrace.System("seed")
	var summary Summary

	for _, p := range fixtures.Photographers {
		log := s.logger.With(zap.String("photographer", p.Email))

		_, err := s.svc.Photographers.Create(ctx, audit, photographersservice.CreateInput{
			ID:          p.ID,
			Email:       p.Email,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			PhoneNumber: p.PhoneNumber,
		})
		if errors.Is(err, photographersservice.ErrConflict) {
			log.Info("photographer exists, skipping")
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("create photographer %s: %w", p.Email, err)
		}
		summary.Photographers++

		scoped := tenant.WithScope(ctx, tenant.For(p.ID))
		if err := s.applyTenant(scoped, audit, p, &summary); err != nil {
			return summary, fmt.Errorf("photographer %s: %w", p.Email, err)
		}
		log.Info("photographer seeded",
			zap.Int("clients", len(p.Clients)),
			zap.Int("studios", len(p.Studios)),
			zap.Int("events", len(p.Events)))
	}
	return summary, nil
}

func (s *Seeder) applyTenant(ctx context.Context, audit requesttrace.AuditInfo, p PhotographerFixture, summary *Summary) error {
	clientIDs := make(map[string]int64, len(p.Clients))
	for _, c := range p.Clients {
		input := clientsservice.Input{
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			Email:       c.Email,
			PhoneNumber: c.PhoneNumber,
			Address:     c.Address,
			Notes:       c.Notes,
		}
		if c.BirthDate != "" {
			born, err := time.Parse(time.DateOnly, c.BirthDate)
			if err != nil {
				return fmt.Errorf("client %s %s: birthDate: %w", c.FirstName, c.LastName, err)
			}
			input.BirthDate = &born
		}
		created, err := s.svc.Clients.Create(ctx, audit, input)
		if err != nil {
			return fmt.Errorf("client %s %s: %w", c.FirstName, c.LastName, err)
		}
		if c.Email != "" {
			clientIDs[strings.ToLower(c.Email)] = created.ID
		}
		summary.Clients++
	}

	studioIDs := make(map[string]int64, len(p.Studios))
	for _, st := range p.Studios {
		created, err := s.svc.Studios.Create(ctx, audit, studiosservice.Input{
			Name:         st.Name,
			LocationType: st.LocationType,
			City:         st.City,
			District:     st.District,
			Street:       st.Street,
			Building:     st.Building,
			Website:      st.Website,
			Description:  st.Description,
			IsPublic:     st.IsPublic,
		})
		if err != nil {
			return fmt.Errorf("studio %s: %w", st.Name, err)
		}
		studioIDs[st.Name] = created.ID
		summary.Studios++
	}

	for _, e := range p.Events {
		draft, err := eventDraft(e, clientIDs, studioIDs)
		if err != nil {
			return fmt.Errorf("event %q: %w", e.Title, err)
		}
		if _, err := s.svc.Events.Create(ctx, audit, draft); err != nil {
			return fmt.Errorf("event %q: %w", e.Title, err)
		}
		summary.Events++
	}
	return nil
}

func eventDraft(e EventFixture, clientIDs, studioIDs map[string]int64) (eventsservice.Draft, error) {
	d := eventsservice.Draft{
		Title:       e.Title,
		Category:    eventsservice.CategoryPhotoshoot,
		AllDay:      e.AllDay,
		Color:       e.Color,
		Description: e.Description,
	}
	if e.Category != "" {
		c, err := eventsservice.ParseCategory(e.Category)
		if err != nil {
			return d, err
		}
		d.Category = c
	}

	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return d, fmt.Errorf("start: %w", err)
	}
	d.Start = start
	if e.End != "" {
		end, err := time.Parse(time.RFC3339, e.End)
		if err != nil {
			return d, fmt.Errorf("end: %w", err)
		}
		d.End = &end
	}

	if e.ClientEmail != "" {
		id, ok := clientIDs[strings.ToLower(e.ClientEmail)]
		if !ok {
			return d, fmt.Errorf("unknown client %s", e.ClientEmail)
		}
		d.ClientID = &id
	}
	if e.StudioName != "" {
		id, ok := studioIDs[e.StudioName]
		if !ok {
			return d, fmt.Errorf("unknown studio %s", e.StudioName)
		}
		d.StudioID = &id
	}
	return d, nil
}
