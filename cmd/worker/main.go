package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"conteudo_app_echo/internal/models"
	"conteudo_app_echo/internal/services"
)

// Checkout attempts the browser never reported back on (tab closed,
// crash) stay active in the audit table. Anything older than this is
// considered abandoned.
const staleAfter = time.Hour

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	// Run once immediately, then on every tick.
	sweepStaleCheckouts(ctx, db)

	for {
		select {
		case <-ticker.C:
			sweepStaleCheckouts(ctx, db)
		case <-ctx.Done():
			return
		}
	}
}

// sweepStaleCheckouts marks checkout attempts abandoned when they have
// been sitting active past the cutoff. Sweeping only touches the audit
// records; the secrets they once referenced expired upstream long ago.
func sweepStaleCheckouts(ctx context.Context, db *gorm.DB) {
	log.Println("Checking for stale checkout sessions...")

	cutoff := time.Now().Add(-staleAfter)
	result := db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("is_active = ? AND updated_at < ?", true, cutoff).
		Updates(map[string]interface{}{
			"state":     models.CheckoutStateAbandoned,
			"is_active": false,
		})

	if result.Error != nil {
		log.Printf("Error sweeping checkout sessions: %v", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		log.Println("No stale checkout sessions found.")
		return
	}
	log.Printf("Marked %d stale checkout sessions abandoned.", result.RowsAffected)
}
