package main

import (
	"os"

	"github.com/campusgpt/admission/internal/pkg/logger"
	"github.com/campusgpt/admission/internal/server"
)

// @title CampusGPT Admission API
// @version 1.0
// @description Five-stage undergraduate admission pipeline and admissions office console

// @contact.name Admissions Office
// @contact.email admissions@superior.edu.pk

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Staff JWT as "Bearer <token>"

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until SIGINT/SIGTERM or a listener failure.
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
