// Seeds the database with demo accounts: one admin and two learners.
// Safe to run repeatedly; it does nothing when users already exist.
package main

import (
	"database/sql"
	"os"

	"github.com/google/uuid"

	"github.com/crisalida-app/crisalida-be/internal/auth"
	"github.com/crisalida-app/crisalida-be/internal/config"
	"github.com/crisalida-app/crisalida-be/internal/database"
	"github.com/crisalida-app/crisalida-be/internal/logger"
	"github.com/crisalida-app/crisalida-be/internal/models"
	"github.com/crisalida-app/crisalida-be/internal/services"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     models.Role
	xp       int
	level    int
	streak   int
}

var seedUsers = []seedUser{
	{name: "Admin User", email: "admin@example.com", password: "admin123", role: models.RoleAdmin, xp: 0, level: 1, streak: 0},
	{name: "Learner One", email: "learner1@example.com", password: "learner123", role: models.RoleLearner, xp: 150, level: 2, streak: 3},
	{name: "Learner Two", email: "learner2@example.com", password: "learner123", role: models.RoleLearner, xp: 300, level: 4, streak: 7},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	userService := services.NewUserService(db)
	count, err := userService.CountUsers()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count users")
	}
	if count > 0 {
		log.Info().Int("existing", count).Msg("Users already exist, nothing seeded")
		return
	}

	for _, u := range seedUsers {
		if err := insertUser(db, u); err != nil {
			log.Fatal().Err(err).Str("email", u.email).Msg("Failed to seed user")
		}
		log.Info().Str("email", u.email).Str("role", string(u.role)).Msg("Seeded user")
	}

	log.Info().Int("count", len(seedUsers)).Msg("Seed completed")
}

func insertUser(db *sql.DB, u seedUser) error {
	hash, err := auth.HashPassword(u.password)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT INTO users(id, name, email, password_hash, role, xp, level, streak) VALUES(?, ?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), u.name, u.email, hash, u.role, u.xp, u.level, u.streak,
	)
	return err
}
