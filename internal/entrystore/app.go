package entrystore

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type Credentials struct {
	ProjectID string
	// EncodedJSON is a base64 encoded service account key.
	EncodedJSON string
	File        string
}

// NewFirestoreClient initializes the Firebase app once and returns its Firestore
// client. Credentials come from the base64 env value first, then the key file.
// With neither set the SDK falls back to the emulator (FIRESTORE_EMULATOR_HOST)
// or application default credentials.
func NewFirestoreClient(ctx context.Context, creds Credentials, log *slog.Logger) (*firestore.Client, error) {
	var opts []option.ClientOption

	switch {
	case creds.EncodedJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(creds.EncodedJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
		log.Info("Firestore: initializing from encoded service account")
	case creds.File != "":
		if _, err := os.Stat(creds.File); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", creds.File, err)
		}
		opts = append(opts, option.WithCredentialsFile(creds.File))
		log.Info("Firestore: initializing from credentials file", "path", creds.File)
	case os.Getenv("FIRESTORE_EMULATOR_HOST") != "":
		log.Info("Firestore: using emulator", "host", os.Getenv("FIRESTORE_EMULATOR_HOST"))
	default:
		log.Info("Firestore: using application default credentials")
	}

	var conf *firebase.Config
	if creds.ProjectID != "" {
		conf = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}
