package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedAirports(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Airport data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS guesses CASCADE`,
		`DROP TABLE IF EXISTS rounds CASCADE`,
		`DROP TABLE IF EXISTS photos CASCADE`,
		`DROP TABLE IF EXISTS players CASCADE`,
		`DROP TABLE IF EXISTS pow_challenges CASCADE`,
		`DROP TABLE IF EXISTS rate_windows CASCADE`,
		`DROP TABLE IF EXISTS airports CASCADE`,
		`DROP TABLE IF EXISTS audit_entries CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pow_challenges (
			id UUID PRIMARY KEY,
			challenge_nonce VARCHAR(64) NOT NULL,
			difficulty INTEGER NOT NULL,
			client_ip_digest VARCHAR(64) NOT NULL,
			solved_nonce VARCHAR(128),
			solved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pow_challenges_expires_at ON pow_challenges(expires_at)`,

		`CREATE TABLE IF NOT EXISTS rate_windows (
			ip_digest VARCHAR(64) NOT NULL,
			endpoint VARCHAR(64) NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 1,
			window_start TIMESTAMPTZ NOT NULL,
			window_seconds INTEGER NOT NULL,
			PRIMARY KEY (ip_digest, endpoint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_windows_window_start ON rate_windows(window_start)`,

		`CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			username VARCHAR(20) NOT NULL,
			registration_ip_digest VARCHAR(64) NOT NULL,
			total_score BIGINT NOT NULL DEFAULT 0,
			rounds_played INTEGER NOT NULL DEFAULT 0,
			photos_uploaded INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_players_username_lower ON players(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_players_total_score ON players(total_score DESC, created_at ASC)`,

		`CREATE TABLE IF NOT EXISTS photos (
			id UUID PRIMARY KEY,
			uploader_digest VARCHAR(64) NOT NULL,
			storage_key VARCHAR(255) NOT NULL,
			file_digest VARCHAR(64) NOT NULL,
			perceptual_hash VARCHAR(64) NOT NULL,
			aircraft_type VARCHAR(120) NOT NULL,
			registration VARCHAR(20),
			airline VARCHAR(120),
			airport_code VARCHAR(4) NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			flag_count INTEGER NOT NULL DEFAULT 0,
			times_used INTEGER NOT NULL DEFAULT 0,
			score_sum BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_status ON photos(status)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_file_digest ON photos(file_digest)`,

		`CREATE TABLE IF NOT EXISTS rounds (
			id UUID PRIMARY KEY,
			player_id UUID NOT NULL REFERENCES players(id),
			photo_id UUID NOT NULL REFERENCES photos(id),
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			started_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			guesses_made INTEGER NOT NULL DEFAULT 0,
			max_guesses INTEGER NOT NULL,
			aircraft_score INTEGER NOT NULL DEFAULT 0,
			location_score INTEGER NOT NULL DEFAULT 0,
			final_score INTEGER NOT NULL DEFAULT 0,
			best_aircraft_guess VARCHAR(120),
			best_location_lat DOUBLE PRECISION,
			best_location_lon DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_player_started ON rounds(player_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_status_expires ON rounds(status, expires_at)`,

		`CREATE TABLE IF NOT EXISTS guesses (
			id UUID PRIMARY KEY,
			round_id UUID NOT NULL REFERENCES rounds(id),
			guess_number INTEGER NOT NULL,
			aircraft_guess VARCHAR(120),
			location_lat DOUBLE PRECISION,
			location_lon DOUBLE PRECISION,
			aircraft_score INTEGER NOT NULL DEFAULT 0,
			location_score INTEGER NOT NULL DEFAULT 0,
			distance_km DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (round_id, guess_number)
		)`,

		`CREATE TABLE IF NOT EXISTS airports (
			code VARCHAR(4) PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			city VARCHAR(80) NOT NULL,
			country VARCHAR(80) NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS audit_entries (
			id UUID PRIMARY KEY,
			action VARCHAR(40) NOT NULL,
			actor_type VARCHAR(16) NOT NULL,
			actor_digest VARCHAR(64) NOT NULL DEFAULT '',
			target_digest VARCHAR(64) NOT NULL DEFAULT '',
			ip_digest VARCHAR(64) NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries(created_at)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	fmt.Printf("  Created %d objects\n", len(queries))

	return nil
}

func seedAirports(ctx context.Context, conn *pgx.Conn) error {
	airports := []struct {
		code, name, city, country string
		lat, lon                  float64
	}{
		{"LHR", "London Heathrow", "London", "United Kingdom", 51.4700, -0.4543},
		{"CDG", "Paris Charles de Gaulle", "Paris", "France", 49.0097, 2.5479},
		{"JFK", "John F. Kennedy International", "New York", "United States", 40.6413, -73.7781},
		{"LAX", "Los Angeles International", "Los Angeles", "United States", 33.9416, -118.4085},
		{"HND", "Tokyo Haneda", "Tokyo", "Japan", 35.5494, 139.7798},
		{"SIN", "Singapore Changi", "Singapore", "Singapore", 1.3644, 103.9915},
		{"DXB", "Dubai International", "Dubai", "United Arab Emirates", 25.2532, 55.3657},
		{"FRA", "Frankfurt Airport", "Frankfurt", "Germany", 50.0379, 8.5622},
		{"AMS", "Amsterdam Schiphol", "Amsterdam", "Netherlands", 52.3105, 4.7683},
		{"SYD", "Sydney Kingsford Smith", "Sydney", "Australia", -33.9399, 151.1753},
		{"GRU", "São Paulo-Guarulhos", "São Paulo", "Brazil", -23.4356, -46.4731},
		{"JNB", "O.R. Tambo International", "Johannesburg", "South Africa", -26.1392, 28.2460},
	}

	query := `
		INSERT INTO airports (code, name, city, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name, city = EXCLUDED.city, country = EXCLUDED.country,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
	`

	for _, a := range airports {
		if _, err := conn.Exec(ctx, query, a.code, a.name, a.city, a.country, a.lat, a.lon); err != nil {
			return fmt.Errorf("failed to seed airport %s: %w", a.code, err)
		}
	}
	fmt.Printf("  Seeded %d airports\n", len(airports))

	return nil
}
