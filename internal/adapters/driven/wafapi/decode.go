package wafapi

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// doJSON runs call and decodes a successful body into T. An empty body
// leaves T at its zero value.
func doJSON[T any](ctx context.Context, c *Client, call Call) (T, error) {
	var out T
	raw, err := c.Do(ctx, call)
	if err != nil {
		return out, err
	}
	if err := decodeInto(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeInto(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.ProtocolError{Message: "unexpected response shape", Err: err}
	}
	return nil
}
