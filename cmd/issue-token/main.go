// Command issue-token signs an access token for local testing against a
// server that shares the same JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/config"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/pkg/jwt"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	userFlag := flag.String("user", "", "user id (random when empty)")
	roleFlag := flag.String("role", string(models.RolePassenger), "passenger, driver or admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	role, err := models.ParseRole(*roleFlag)
	if err != nil {
		logger.Fatalf("Invalid role: %v", err)
	}

	userID := uuid.New()
	if *userFlag != "" {
		if userID, err = uuid.Parse(*userFlag); err != nil {
			logger.Fatalf("Invalid user id: %v", err)
		}
	}

	token, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry).GenerateAccessToken(userID, string(role))
	if err != nil {
		logger.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user_id=%s role=%s expires_in=%s\n", userID, role, cfg.JWT.AccessTokenExpiry)
	fmt.Println(token)
}
