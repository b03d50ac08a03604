package main

import (
	"context"
	"fmt"
	"time"

	"github.com/summmmi/socket.ooo/internal/store"
)

// isoLayout odpovídá formátu, který zapisuje led-controller.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultColor se vrací, dokud tabulka led_colors nic neobsahuje.
const defaultColor = "red"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// HistorySource je čtecí strana store.Repository.
type HistorySource interface {
	Latest(ctx context.Context) (store.Record, bool, error)
	Recent(ctx context.Context, limit int) ([]store.Record, error)
}

// Service obsahuje logiku čtení historie nad HistorySource.
type Service struct {
	src HistorySource
	now func() time.Time
}

func NewService(src HistorySource) *Service {
	return &Service{src: src, now: time.Now}
}

// LatestColor vrací poslední odeslanou barvu. Prázdná tabulka není chyba,
// vrátí se {color: "red", timestamp: teď}.
func (s *Service) LatestColor(ctx context.Context) (ColorDTO, error) {
	rec, ok, err := s.src.Latest(ctx)
	if err != nil {
		return ColorDTO{}, fmt.Errorf("načtení poslední barvy: %w", err)
	}
	if !ok {
		return ColorDTO{Color: defaultColor, Timestamp: s.now().UTC().Format(isoLayout)}, nil
	}
	return toDTO(rec), nil
}

// RecentColors vrací posledních limit záznamů, nejnovější první.
func (s *Service) RecentColors(ctx context.Context, limit int) ([]ColorDTO, error) {
	recs, err := s.src.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("načtení historie barev: %w", err)
	}

	// Prázdný výsledek serializujeme jako [] a ne null.
	out := make([]ColorDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDTO(rec))
	}
	return out, nil
}

func toDTO(rec store.Record) ColorDTO {
	return ColorDTO{ID: rec.ID, Color: rec.Color, Timestamp: rec.Timestamp}
}
