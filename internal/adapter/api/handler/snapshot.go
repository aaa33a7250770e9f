package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/response"
	"dragonflychat/pkg/stream"
	"dragonflychat/pkg/utils"
)

const snapshotTimeout = 10 * time.Second

// firstSnapshot serves a plain GET from a live subscription: it takes the first
// snapshot and closes the stream.
func firstSnapshot[T any](ctx context.Context, s *stream.Stream[[]T]) ([]T, error) {
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	select {
	case items, ok := <-s.Updates():
		if !ok {
			if err := s.Err(); err != nil {
				return nil, err
			}
			return nil, errors.TransientStore("Subscription closed before any data arrived", nil)
		}
		return items, nil
	case <-ctx.Done():
		return nil, errors.TransientStore("Timed out waiting for data", ctx.Err())
	}
}

func paginated[T any](c echo.Context, items []T) error {
	p := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(items, p), int64(len(items)), p.Page, p.PageSize)
}

// listFromStream answers a GET with one page of the first snapshot of open().
func listFromStream[T any](c echo.Context, s *stream.Stream[[]T], err error) error {
	if err != nil {
		return response.Error(c, err)
	}
	items, err := firstSnapshot(c.Request().Context(), s)
	if err != nil {
		return response.Error(c, err)
	}
	return paginated(c, items)
}
