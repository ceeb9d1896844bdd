// Package main implements the entry point for the mnemo server, which keeps
// flashcard memory health in sync with the passage of time and serves review
// statistics.
package main

import (
	"log"
)

// main wires configuration, logging, the database, and the application
// services, then starts the HTTP server. All real work happens in
// initializeApp and application.run so failures surface as errors instead of
// os.Exit calls scattered through the setup path.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.close()

	if err := app.run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
