package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KavinT06/anigas-attire-sub000/internal/compat"
)

// Result is the uniform outcome of an API call, for callers that prefer to
// branch on a value instead of an error.
type Result[T any] struct {
	Success bool
	Data    T
	Err     error
}

// Call performs r and decodes a successful JSON body into T. An empty body
// leaves Data as the zero value.
func Call[T any](ctx context.Context, c *Client, r Request) Result[T] {
	return CallWith(ctx, c, r, func(body []byte) (T, error) {
		var v T
		if len(body) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return v, fmt.Errorf("decode %s %s response: %w", r.Method, r.Path, err)
		}
		return v, nil
	})
}

// CallList performs r and decodes a collection in any of the known envelope
// shapes.
func CallList[T any](ctx context.Context, c *Client, r Request) Result[[]T] {
	return CallWith(ctx, c, r, compat.List[T])
}

// CallWith performs r and decodes the body with decode.
func CallWith[T any](ctx context.Context, c *Client, r Request, decode func([]byte) (T, error)) Result[T] {
	body, err := c.Do(ctx, r)
	if err != nil {
		return Result[T]{Err: err}
	}
	v, err := decode(body)
	if err != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Success: true, Data: v}
}

// Unwrap converts the result back to the (value, error) form.
func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err
}
