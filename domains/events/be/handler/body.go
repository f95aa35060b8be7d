package handler

import (
	"time"

	"github.com/photohub/photohub-saas/domains/events/be/service"
	"github.com/photohub/photohub-saas/domains/events/be/wire"
	"github.com/photohub/photohub-saas/platform/go/problem"
)

func optional[T any](n problem.Nullable[T]) service.Optional[T] {
	return service.Optional[T]{Set: n.Set, Value: n.Value}
}

// eventBody is shared by create and patch requests.
type eventBody struct {
	Title       *string                     `json:"title"`
	Category    *string                     `json:"category"`
	Start       *time.Time                  `json:"start"`
	End         problem.Nullable[time.Time] `json:"end"`
	AllDay      *bool                       `json:"allDay"`
	ClientID    problem.Nullable[int64]     `json:"clientId"`
	StudioID    problem.Nullable[int64]     `json:"studioId"`
	Color       *string                     `json:"color"`
	Description *string                     `json:"description"`
}

func (b eventBody) draft() service.Draft {
	d := service.Draft{
		End:      b.End.Value,
		ClientID: b.ClientID.Value,
		StudioID: b.StudioID.Value,
	}
	if b.Title != nil {
		d.Title = *b.Title
	}
	if b.Category != nil {
		d.Category = service.Category(*b.Category)
	}
	if b.Start != nil {
		d.Start = *b.Start
	}
	if b.AllDay != nil {
		d.AllDay = *b.AllDay
	}
	if b.Color != nil {
		d.Color = *b.Color
	}
	if b.Description != nil {
		d.Description = *b.Description
	}
	return d
}

func (b eventBody) patch() service.UpdateInput {
	in := service.UpdateInput{
		Title:       b.Title,
		Start:       b.Start,
		End:         optional(b.End),
		AllDay:      b.AllDay,
		ClientID:    optional(b.ClientID),
		StudioID:    optional(b.StudioID),
		Color:       b.Color,
		Description: b.Description,
	}
	if b.Category != nil {
		c := service.Category(*b.Category)
		in.Category = &c
	}
	return in
}

type eventPage struct {
	Items      []wire.Event `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalItems int          `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
}

type eventDefaults struct {
	Category        string `json:"category"`
	CategoryDisplay string `json:"category_display"`
	Start           string `json:"start"`
	End             string `json:"end"`
	AllDay          bool   `json:"allDay"`
	Color           string `json:"color"`
}
