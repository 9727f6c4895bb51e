package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"bharatconnect/pkg/logger"
)

// Config holds Firebase Admin SDK settings
type Config struct {
	ProjectID       string
	CredentialsPath string
}

// App wraps the Firebase Admin SDK app
type App struct {
	app       *firebase.App
	projectID string
}

// NewApp initializes the Firebase Admin SDK. Credentials are read into memory
// from CredentialsPath; without a path, application default credentials are used.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	var opts []option.ClientOption
	projectID := cfg.ProjectID

	if cfg.CredentialsPath != "" {
		credentials, err := os.ReadFile(filepath.Clean(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to read Firebase credentials file: %w", err)
		}
		if projectID == "" {
			projectID, err = projectIDFromCredentials(credentials)
			if err != nil {
				return nil, err
			}
		}
		opts = append(opts, option.WithCredentialsJSON(credentials))
	}

	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized", zap.String("project_id", projectID))

	return &App{app: app, projectID: projectID}, nil
}

// ProjectID returns the resolved Firebase project
func (a *App) ProjectID() string {
	return a.projectID
}

// Firestore returns a Firestore client for the project
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return client, nil
}

// TokenVerifier checks Firebase ID tokens
func (a *App) TokenVerifier(ctx context.Context) (*TokenVerifier, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firebase auth client: %w", err)
	}
	return &TokenVerifier{client: client}, nil
}

// TokenVerifier verifies Firebase ID tokens and yields the Firebase UID
type TokenVerifier struct {
	client *auth.Client
}

// VerifyToken returns the UID of a valid ID token
func (v *TokenVerifier) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify ID token: %w", err)
	}
	return token.UID, nil
}

// Provider names the verifier for metrics labels
func (v *TokenVerifier) Provider() string {
	return "firebase"
}

func projectIDFromCredentials(credentials []byte) (string, error) {
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(credentials, &creds); err != nil {
		return "", fmt.Errorf("failed to parse Firebase credentials: %w", err)
	}
	return creds.ProjectID, nil
}
