// Package firestore stores saved routes and execution records in Firestore.
package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
)

const (
	executionsCollection = "executions"
	routesCollection     = "routes"
)

// Client wraps a firestore client with the collections CyclingHub uses.
type Client struct {
	fs *firestore.Client
}

func NewClient(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

func (c *Client) Executions() *firestore.CollectionRef {
	return c.fs.Collection(executionsCollection)
}

func (c *Client) Routes() *firestore.CollectionRef {
	return c.fs.Collection(routesCollection)
}

// RouteStore implements storage.RouteStore.
type RouteStore struct {
	client *Client
}

func NewRouteStore(client *Client) *RouteStore {
	return &RouteStore{client: client}
}

var _ storage.RouteStore = (*RouteStore)(nil)

func (s *RouteStore) SaveRoute(ctx context.Context, r *storage.SavedRoute) error {
	doc, err := RouteToFirestore(r)
	if err != nil {
		return hubErrors.ErrStorageError.WithMessage("encode route").WithCause(err)
	}
	if _, err := s.client.Routes().Doc(r.ID).Set(ctx, doc); err != nil {
		return hubErrors.ErrStorageError.WithMessage("save route").WithCause(err)
	}
	return nil
}

func (s *RouteStore) GetRoute(ctx context.Context, id string) (*storage.SavedRoute, error) {
	snap, err := s.client.Routes().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, hubErrors.ErrStorageError.WithMessage("get route").WithCause(err)
	}
	return decode(snap)
}

// ListRoutes returns every saved route, newest first.
func (s *RouteStore) ListRoutes(ctx context.Context) ([]*storage.SavedRoute, error) {
	iter := s.client.Routes().OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*storage.SavedRoute
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, hubErrors.ErrStorageError.WithMessage("list routes").WithCause(err)
		}
		r, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RouteStore) DeleteRoute(ctx context.Context, id string) error {
	ref := s.client.Routes().Doc(id)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return storage.NotFound(id)
	} else if err != nil {
		return hubErrors.ErrStorageError.WithMessage("get route").WithCause(err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return hubErrors.ErrStorageError.WithMessage("delete route").WithCause(err)
	}
	return nil
}

func decode(snap *firestore.DocumentSnapshot) (*storage.SavedRoute, error) {
	r, err := FirestoreToRoute(snap.Data())
	if err != nil {
		return nil, hubErrors.ErrStorageError.WithMessage("decode route").WithCause(err)
	}
	if r.ID == "" {
		r.ID = snap.Ref.ID
	}
	return r, nil
}
