package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/database"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/handlers"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/notify"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/routes"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/storage"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("could not load .env file, relying on system environment variables")
	}

	// Pretty console output outside production.
	if os.Getenv("LOG_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// 2. --- Schema Migrations ---
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// 3. --- Media Storage ---
	store, err := storage.NewLocalStore()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media storage")
	}

	// --- Application Setup ---
	// Inject all dependencies into the Handlers struct.
	app := &handlers.Handlers{
		DB:     db,
		Store:  store,
		Mailer: notify.LogMailer{},
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, store.Root)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("starting API server")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
