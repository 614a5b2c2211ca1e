package db

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/masambo/jukebox-joy-scan/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(128) NOT NULL UNIQUE,
			email VARCHAR(255) UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			role VARCHAR(32) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_user_role (user_id, role)
		)`,
		`CREATE TABLE IF NOT EXISTS bars (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE,
			address VARCHAR(512),
			description VARCHAR(1024),
			logo_url VARCHAR(512),
			primary_color VARCHAR(32),
			secondary_color VARCHAR(32),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bar_managers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			bar_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_bar_manager (bar_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS albums (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			bar_id BIGINT NOT NULL,
			title VARCHAR(255) NOT NULL,
			artist VARCHAR(255),
			disk_number INT NOT NULL,
			cover_url VARCHAR(512),
			genre VARCHAR(128),
			year BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_albums_bar (bar_id),
			UNIQUE KEY uniq_bar_disk (bar_id, disk_number)
		)`,
		`CREATE TABLE IF NOT EXISTS songs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			album_id BIGINT NOT NULL,
			title VARCHAR(255) NOT NULL,
			track_number INT NOT NULL,
			duration VARCHAR(16),
			artist VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			KEY idx_songs_album (album_id)
		)`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			bar_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_by BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_playlists_bar (bar_id)
		)`,
		`CREATE TABLE IF NOT EXISTS playlist_songs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			playlist_id BIGINT NOT NULL,
			song_id BIGINT NOT NULL,
			position INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_playlist_song (playlist_id, song_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Println("Database initialization completed.")
	return nil
}
