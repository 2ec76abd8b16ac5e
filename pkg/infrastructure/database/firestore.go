package database

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/xpayn3/cyclinghub-server/pkg/execution"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
	fsstore "github.com/xpayn3/cyclinghub-server/pkg/storage/firestore"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	Client *firestore.Client
	typed  *fsstore.Client
	routes *fsstore.RouteStore
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	typed := fsstore.NewClient(client)
	return &FirestoreAdapter{
		Client: client,
		typed:  typed,
		routes: fsstore.NewRouteStore(typed),
	}
}

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *execution.Record) error {
	_, err := a.typed.Executions().Doc(record.ExecutionID).Set(ctx, record)
	return err
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := a.typed.Executions().Doc(id).Set(ctx, data, firestore.MergeAll)
	return err
}

// Routes returns the saved-route store backed by the same client.
func (a *FirestoreAdapter) Routes() storage.RouteStore {
	return a.routes
}
