package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/database"
	"github.com/iqbalhamzah/dinelink/middlewares"
	"github.com/iqbalhamzah/dinelink/qrimg"
	"github.com/iqbalhamzah/dinelink/router"
	"github.com/iqbalhamzah/dinelink/services"
	"github.com/iqbalhamzah/dinelink/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Migration failed: %v", err)
	}

	qrClient := qrimg.NewClient(cfg.QRRenderURL, cfg.QRImageDir)
	tokenService := services.NewTokenService(db, cfg, qrClient)
	paymentService := services.NewPaymentService(db, cfg, tokenService)

	// Expired tokens are swept in the background so a stale QR stops
	// validating even when no payment ever rotates it.
	tokenService.StartExpirySweeper()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, cfg, tokenService, paymentService)
	r.Use(rateLimiter.RateLimit())
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
