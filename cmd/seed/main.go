// Command seed resets the catalog and loads a demo set of concerts and
// ticket tiers for local development.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/config"
	"github.com/rrojan/ticket-booking/migrations"
)

type concertSeed struct {
	name        string
	artist      string
	date        time.Time
	venue       string
	description string
}

type tierSeed struct {
	tierType   string
	price      decimal.Decimal
	quantities [5]int
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	if _, err := pool.Exec(ctx, `TRUNCATE bookings, ticket_tiers, concerts RESTART IDENTITY CASCADE`); err != nil {
		log.Fatal().Err(err).Msg("truncate tables")
	}

	concerts := []concertSeed{
		{"Rachana Dahal Live", "Rachana Dahal", time.Date(2026, 3, 15, 19, 0, 0, 0, time.UTC), "LOD", "Hey Bhagwan Tour"},
		{"Nepathya - Greatest Hits Tour", "Nepathya", time.Date(2026, 3, 15, 19, 0, 0, 0, time.UTC), "Trisara", "Legendary Nepali rock band Nepathya!!"},
		{"Cobweb - Rock Night", "Cobweb", time.Date(2026, 4, 20, 18, 30, 0, 0, time.UTC), "LOD", "Heavy rock music night with Cobweb"},
		{"TOOL - Fear Inoculum Tour", "TOOL", time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC), "London", "Prog metal legends"},
		{"Sajjan Raj Vaidya Live", "Sajjan Raj Vaidya", time.Date(2026, 6, 5, 19, 30, 0, 0, time.UTC), "LOD", "Acoustic session with Sajjan Raj Vaidya"},
	}

	tiers := []tierSeed{
		{"VIP", decimal.RequireFromString("100.00"), [5]int{50, 100, 30, 80, 10}},
		{"FRONT_ROW", decimal.RequireFromString("50.00"), [5]int{150, 200, 120, 180, 100}},
		{"GA", decimal.RequireFromString("10.00"), [5]int{1500, 2000, 1000, 1800, 1200}},
	}

	for i, c := range concerts {
		var concertID string
		err := pool.QueryRow(ctx, `
INSERT INTO concerts (name, artist, date, venue, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
			c.name, c.artist, c.date, c.venue, c.description,
		).Scan(&concertID)
		if err != nil {
			log.Fatal().Err(err).Str("concert", c.name).Msg("insert concert")
		}

		for _, t := range tiers {
			qty := t.quantities[i]
			if _, err := pool.Exec(ctx, `
INSERT INTO ticket_tiers (concert_id, tier_type, price, total_quantity, available_quantity)
VALUES ($1, $2, $3, $4, $5)`,
				concertID, t.tierType, t.price, qty, qty,
			); err != nil {
				log.Fatal().Err(err).Str("concert", c.name).Str("tier", t.tierType).Msg("insert tier")
			}
		}
	}

	log.Info().Int("concerts", len(concerts)).Int("tiers_per_concert", len(tiers)).Msg("database seeded")
}
