package export

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage/gcs"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage/local"
)

// Target is a resolved export destination.
type Target struct {
	Store nomination.BlobStore
	Path  string
	close func() error
}

// Close releases any client opened for the target.
func (t Target) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

// Resolver maps a destination string to a Target.
type Resolver func(ctx context.Context, dest string) (Target, error)

// ResolveDestination sends gs://bucket/object destinations to Cloud Storage
// using application default credentials. Anything else is a local path.
func ResolveDestination(ctx context.Context, dest string) (Target, error) {
	if gcs.IsURI(dest) {
		bucket, object, err := gcs.ParseURI(dest)
		if err != nil {
			return Target{}, err
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return Target{}, fmt.Errorf("create storage client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: bucket})
		if err != nil {
			_ = client.Close()
			return Target{}, err
		}
		return Target{Store: store, Path: object, close: client.Close}, nil
	}

	store, err := local.New(local.Config{})
	if err != nil {
		return Target{}, err
	}
	return Target{Store: store, Path: dest}, nil
}

// StaticResolver always returns store, writing to the destination path as given.
func StaticResolver(store nomination.BlobStore) Resolver {
	return func(_ context.Context, dest string) (Target, error) {
		return Target{Store: store, Path: dest}, nil
	}
}
