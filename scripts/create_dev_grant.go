package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/auth"
	"github.com/franciscosanchezn/credex-api/internal/config"
	"github.com/franciscosanchezn/credex-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	// Parse command line flags
	clientID := flag.String("client", "dev-client", "Client ID to bind the code to")
	apiKey := flag.String("key", "sk-dev-123", "API key to protect")
	scope := flag.String("scope", "read", "Granted scope")
	dbPath := flag.String("db", "credex.sqlite", "SQLite database path")
	flag.Parse()

	masterSecret := config.GetEnvWithDefault("MASTER_SECRET", "")
	if masterSecret == "" {
		log.Fatal("MASTER_SECRET must be set; the server must use the same value")
	}

	db, err := gorm.Open(sqlite.Open(*dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := db.AutoMigrate(&models.AuthorizationCode{}); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}

	codec, err := auth.NewSecretCodec(masterSecret, bcrypt.MinCost)
	if err != nil {
		log.Fatal("Failed to build codec:", err)
	}

	// Generate a PKCE verifier/challenge pair
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		log.Fatal("Failed to generate verifier:", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	challenge := auth.ComputeChallenge(verifier)

	store := auth.NewCodeStore(db, codec, false)
	code, err := store.Issue(context.Background(), *clientID, "", challenge, auth.ChallengeMethodS256, *scope, *apiKey, 10*time.Minute)
	if err != nil {
		log.Fatal("Failed to issue code:", err)
	}

	fmt.Println("Development authorization code created!")
	fmt.Printf("Client ID: %s\n", *clientID)
	fmt.Printf("Code: %s\n", code.Code)
	fmt.Printf("Code verifier: %s\n", verifier)
	fmt.Printf("Expires at: %s\n", code.ExpiresAt.Format(time.RFC3339))
	fmt.Println("\nRedeem it with:")
	fmt.Printf("curl -X POST http://localhost:8080/oauth/token \\\n")
	fmt.Printf("  -d 'grant_type=authorization_code' \\\n")
	fmt.Printf("  -d 'client_id=%s' \\\n", *clientID)
	fmt.Printf("  -d 'code=%s' \\\n", code.Code)
	fmt.Printf("  -d 'code_verifier=%s'\n", verifier)
}
