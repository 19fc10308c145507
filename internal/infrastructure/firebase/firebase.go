package firebase

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Clients bundles the Firebase handles the application needs: token
// verification and the Firestore document store.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// Setup initializes the Firebase app for the given project. When
// credentialsFile is empty, application default credentials are used.
func Setup(ctx context.Context, projectID, credentialsFile string) (*Clients, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Auth:      authClient,
		Firestore: firestoreClient,
	}, nil
}

// Close releases the underlying connections.
func (c *Clients) Close() error {
	return c.Firestore.Close()
}
