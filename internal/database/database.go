package database

import (
	"database/sql"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// OpenDB initializes and returns the primary Read/Write connection pool.
// It reads the DSN from the environment variable (or hardcoded fallback).
func OpenDB() (*sql.DB, error) {
	// 1. Define the Data Source Name (DSN)
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		// FALLBACK: local development default.
		dsn = "root:root@tcp(127.0.0.1:3306)/capstone_store?parseTime=true"
	}

	// Delegate the rest of the setup to the generic function
	return OpenDBWithDSN(dsn)
}

// OpenDBWithDSN is a generic function to create and configure a DB connection pool
// using any provided DSN string.
func OpenDBWithDSN(dsn string) (*sql.DB, error) {
	// 2. Open a new connection pool.
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// 3. Configure the connection pool settings.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 4. Ping the database to verify the connection.
	err = db.Ping()
	if err != nil {
		log.Error().Err(err).Msg("error connecting to database")
		return nil, err
	}

	log.Info().Msg("database connection pool established")
	return db, nil
}
