package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/middleware"
	"review-quorum-api/monitor"
	"review-quorum-api/routes"
	"review-quorum-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router)
	monitor.RegisterMonitorRoutes(router)

	// Start the assignment reaper loop; it stops on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go runReaperLoop(ctx)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("Database connected successfully")

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// runReaperLoop sweeps expired assignments on a fixed interval. Overlap
// across instances is prevented by the named lock; a held lock is reported
// as a skip, not a failure.
func runReaperLoop(ctx context.Context) {
	interval := 60 * time.Minute
	if raw := os.Getenv("REAPER_INTERVAL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			interval = time.Duration(minutes) * time.Minute
		}
	}
	lockName := services.ReaperLockName()

	svc := services.NewReaperService(config.DB, services.LoadSettings())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Assignment reaper running every %s", interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Assignment reaper stopped")
			return
		case <-ticker.C:
			summary, err := svc.Sweep(ctx, lockName)
			if err != nil {
				if errors.Is(err, services.ErrReaperAlreadyRunning) {
					log.Println("Reaper sweep skipped: another instance holds the lock")
					continue
				}
				log.Printf("Reaper sweep failed: %v", err)
				continue
			}
			log.Printf("Reaper sweep done: expired=%d reassigned=%d submissions=%d failures=%d",
				summary.ExpiredAssignments, summary.NewAssignments,
				summary.ReapedSubmissions, summary.Failures)
		}
	}
}
