// Package config provides configuration management for the tracker.
//
// It utilizes Viper for loading configuration from environment variables and
// a .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP server settings (port, API key, CORS origins)
//   - Database: connection details and driver selection
//   - Storage: object storage credentials for audit artifacts
//   - Log: logging level and format
//   - Gmail: message source endpoint, token and search query
//   - Classifier: LLM endpoint, model and API key
//   - Ingest: processing behavior (mark-as-read, raw archiving)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
