package main

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"passreg/pkg/passreg/activity"
	"passreg/pkg/passreg/admin"
	"passreg/pkg/passreg/auth"
	"passreg/pkg/passreg/database"
	"passreg/pkg/passreg/groups"
	"passreg/pkg/passreg/logger"
	"passreg/pkg/passreg/models"
	"passreg/pkg/passreg/people"
	"passreg/pkg/passreg/public"
	"passreg/pkg/passreg/qr"
)

func main() {
	_ = godotenv.Load()

	lg := logger.New()
	defer lg.Sync()

	db, err := database.Connect(database.Config{
		PostgresDSN: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("PASSREG_DB_PATH"),
	})
	if err != nil {
		lg.Fatalw("Failed to connect to database", "error", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		lg.Fatalw("Failed to run migrations", "error", err)
	}
	lg.Infow("Database migrations completed")

	if err := ensureMainAdminExists(db, lg); err != nil {
		lg.Fatalw("Failed to ensure main admin exists", "error", err)
	}

	baseURL := os.Getenv("PASSREG_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	uploadDir := os.Getenv("PASSREG_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(filepath.Join(uploadDir, "photos"), 0o755); err != nil {
		lg.Fatalw("Failed to create upload directory", "error", err)
	}

	qrGen := qr.NewGenerator(baseURL, uploadDir)

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Uploaded photos and QR code images
	r.Static("/uploads", uploadDir)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Public passport lookup - keyed by public identifier only,
		// no authentication
		publicHandler := public.NewHandler(db)
		publicHandler.RegisterRoutes(api.Group(""))

		// Protected routes
		protected := api.Group("", auth.AuthMiddleware())

		peopleHandler := people.NewHandler(db, lg, qrGen, uploadDir)
		peopleHandler.RegisterRoutes(protected)

		groupsHandler := groups.NewHandler(db)
		groupsHandler.RegisterRoutes(protected)

		activityHandler := activity.NewHandler(db)
		activityHandler.RegisterRoutes(protected)

		// Admin management (main admin only)
		adminHandler := admin.NewHandler(db)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireMainAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	// Serve static frontend files if web/dist exists
	webDistPath := "./web/dist"
	if _, err := os.Stat(webDistPath); err == nil {
		r.Static("/assets", filepath.Join(webDistPath, "assets"))
		r.StaticFile("/favicon.ico", filepath.Join(webDistPath, "favicon.ico"))

		indexHTML := filepath.Join(webDistPath, "index.html")
		for _, route := range []string{"/", "/login", "/dashboard", "/activity", "/admins"} {
			r.GET(route, func(c *gin.Context) {
				c.File(indexHTML)
			})
		}
		// Public passport pages share the SPA shell
		r.GET("/p/*path", func(c *gin.Context) {
			c.File(indexHTML)
		})

		lg.Infow("Serving frontend from ./web/dist")
	} else {
		lg.Infow("No frontend build found at ./web/dist - API only mode")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	lg.Infow("Starting passreg server", "port", port)
	if err := r.Run(":" + port); err != nil {
		lg.Fatalw("Failed to start server", "error", err)
	}
}

// ensureMainAdminExists seeds a default main admin when the database
// has none, so a fresh deployment can be logged into.
func ensureMainAdminExists(db *gorm.DB, lg *zap.SugaredLogger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_main_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("PASSREG_ADMIN_EMAIL")
	if email == "" {
		email = "admin@passreg.local"
	}
	password := os.Getenv("PASSREG_ADMIN_PASSWORD")
	if password == "" {
		password = "changeme"
	}

	user, err := auth.EnsureUser(db, auth.UserAttributes{
		ID:        "",
		Email:     &email,
		FirstName: "Admin",
	})
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Model(user).Updates(map[string]interface{}{
		"password_hash": hash,
		"is_main_admin": true,
	}).Error; err != nil {
		return err
	}

	lg.Infow("Created default main admin", "email", email)
	return nil
}
