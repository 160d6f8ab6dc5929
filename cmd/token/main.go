// Command token checks a user's password against the database and prints a bearer token for
// them. It stands in for a login endpoint in local and staging setups.
//
//	token -email ada@example.com -password '...' [-ttl 1h]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"credhealth/internal/adapter/repository/gormrepo"
	"credhealth/internal/auth"
	"credhealth/internal/config"
	"credhealth/internal/infrastructure/db"
)

func main() {
	email := flag.String("email", "", "user email")
	password := flag.String("password", "", "user password")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), nil)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, err := gormrepo.NewUserRepository(gdb).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if err := auth.VerifyPassword(u.PasswordHash, *password); err != nil {
		log.Fatal("invalid email or password")
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	tok, err := tokens.Issue(u.UserID, u.Role, *ttl)
	if err != nil {
		log.Fatalf("issue: %v", err)
	}
	fmt.Println(tok)
}
