// Command devtoken provisions a local user and prints a bearer token for it,
// standing in for the external identity provider during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/config"
	"github.com/Manoj-git-hub/ecommerce-project/internal/database"
	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/logger"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"
	"github.com/Manoj-git-hub/ecommerce-project/internal/service"

	"go.uber.org/zap"
)

func main() {
	username := flag.String("username", "", "username to provision (required)")
	email := flag.String("email", "", "email for a newly provisioned user")
	role := flag.String("role", domain.RoleUser, "role: user or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_ACCESS_EXPIRY)")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *ttl == 0 {
		*ttl = time.Duration(cfg.JWT.AccessExpiry) * time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	users := service.NewUserService(repository.NewStore(dbService.DB()).Users(), cfg.JWT.Secret)
	user, err := users.Provision(ctx, *username, *email, *role)
	if err != nil {
		log.Fatal("Failed to provision user", zap.Error(err))
	}

	token, err := users.IssueAccessToken(user, *ttl)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}

	log.Info("Token issued",
		zap.String("username", user.Username),
		zap.String("role", user.Role),
		zap.Duration("ttl", *ttl),
	)
	fmt.Println(token)
}
