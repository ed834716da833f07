package github

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v71/github"

	"github.com/publicfreesuffix/registry-automation/internal/config"
)

// appJWTLifetime is the validity window of the App JWT. GitHub rejects
// anything over ten minutes.
const appJWTLifetime = 10 * time.Minute

// newAppInstallationToken mints a short-lived App JWT and exchanges it for an
// installation access token scoped to the configured installation.
func newAppInstallationToken(ctx context.Context, cfg config.GitHubConfig) (string, error) {
	if cfg.InstallationID == 0 {
		return "", fmt.Errorf("GITHUB_APP_INSTALLATION_ID environment variable is required for app auth")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.AppPrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse app private key: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", cfg.AppID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}

	appClient := gh.NewClient(nil).WithAuthToken(signed)
	token, _, err := appClient.Apps.CreateInstallationToken(ctx, cfg.InstallationID, nil)
	if err != nil {
		return "", fmt.Errorf("create installation token: %w", err)
	}
	return token.GetToken(), nil
}
