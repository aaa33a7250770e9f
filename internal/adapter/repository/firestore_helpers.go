package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// storeError maps a Firestore error onto the application taxonomy.
func storeError(resource, action string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.AlreadyExists:
		return errors.Conflict(resource + " already exists")
	}
	return errors.TransientStore("Failed to "+action+" "+resource, err)
}

// watchQuery turns a Firestore snapshot listener into a stream of full result sets.
// Documents that fail to decode are skipped. Stopping the iterator is what removes the
// listener, and it happens when the producer returns.
func watchQuery[T any](ctx context.Context, q firestore.Query, resource string, decode func(*firestore.DocumentSnapshot) (T, error)) *stream.Stream[[]T] {
	return stream.Start(ctx, func(ctx context.Context, emit func([]T) bool) error {
		it := q.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.TransientStore("Failed to listen to "+resource, err)
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				return errors.TransientStore("Failed to read "+resource+" snapshot", err)
			}

			items := make([]T, 0, len(docs))
			for _, doc := range docs {
				item, err := decode(doc)
				if err != nil {
					logger.Warn("Skipping malformed %s document %s: %v", resource, doc.Ref.ID, err)
					continue
				}
				items = append(items, item)
			}

			if !emit(items) {
				return nil
			}
		}
	}, nil)
}
