package main

import (
	"context"
	"os"

	"github.com/yigit/madrasa/internal/pkg/logger"
	"github.com/yigit/madrasa/internal/server"
)

// @title Madrasa API
// @version 1.0
// @description Administration API for a weekend school: students, guardians, teachers, attendance, grades, messaging and reports.

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token as "Bearer <token>"

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
