package main

import (
	"fmt"
	"net/http"
	"time"

	_ "github.com/franciscosanchezn/credex-api/docs" // Import generated docs
	"github.com/franciscosanchezn/credex-api/internal/auth"
	"github.com/franciscosanchezn/credex-api/internal/config"
	"github.com/franciscosanchezn/credex-api/internal/controllers"
	"github.com/franciscosanchezn/credex-api/internal/database"
	"github.com/franciscosanchezn/credex-api/internal/middleware"
	"github.com/franciscosanchezn/credex-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var (
	db             *gorm.DB
	oauthService   *auth.OAuthService
	userController *controllers.UserController
	configuration  *config.Config
)

// @title Credex API
// @version 1.0
// @description Short-lived credential exchange: API keys in, ephemeral scoped bearer tokens out
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize the credential exchange and controllers
	var err error
	oauthService, err = auth.NewOAuthService(db, configuration)
	checkPanicErr(err)

	resourceAPI := services.NewResourceClient(configuration.ResourceAPIURL, configuration.StoreTimeout)
	userController = controllers.NewUserController(oauthService, resourceAPI, configuration.StoreTimeout)

	// Initialize Gin router
	var router *gin.Engine = setupRouter()

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf.String())
	return conf
}

// setupDatabase initializes the database connection and migrates the schema
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)

	err = database.Migrate(db)
	checkPanicErr(err)

	return db
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter() *gin.Engine {
	// Initialize Gin router
	router := gin.Default()

	// Define routes
	setupRoutes(router)

	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// OAuth metadata discovery
	router.GET("/.well-known/oauth-authorization-server", oauthService.HandleMetadata)

	// Credential exchange endpoints
	oauthGroup := router.Group("/oauth")
	{
		oauthGroup.POST("/authorize", oauthService.HandleAuthorize)
		oauthGroup.POST("/token", oauthService.HandleToken)
		oauthGroup.POST("/revoke", oauthService.HandleRevoke)
	}

	// Protected routes (requires a valid session-bound access token)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.BearerAuth(oauthService.Tokens, oauthService.Sessions, configuration.StoreTimeout))
	{
		v1.GET("/user", middleware.RequireScope("read"), userController.GetCurrentUser)
		v1.GET("/session", userController.GetSession)
		v1.POST("/logout", oauthService.HandleLogout)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "credex-api",
	})
}
