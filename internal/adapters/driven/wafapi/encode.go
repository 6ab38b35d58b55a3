package wafapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// buildTarget returns the final URL and request body. GET bodies become
// query parameters; other methods get a JSON body.
func buildTarget(method, target string, body any) (string, []byte, error) {
	if body == nil {
		return target, nil, nil
	}

	if method != http.MethodGet {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", nil, fmt.Errorf("encode request body: %w", err)
		}
		return target, payload, nil
	}

	query, err := toQuery(body)
	if err != nil {
		return "", nil, err
	}
	if len(query) == 0 {
		return target, nil, nil
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode(), nil, nil
}

// toQuery flattens body into query values. Scalars are formatted plainly;
// nested values are JSON-encoded.
func toQuery(body any) (url.Values, error) {
	if v, ok := body.(url.Values); ok {
		return v, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("query body must be an object: %w", err)
	}

	values := make(url.Values, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			values.Set(k, val)
		case float64:
			values.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		case bool:
			values.Set(k, strconv.FormatBool(val))
		default:
			nested, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("encode query field %s: %w", k, err)
			}
			values.Set(k, string(nested))
		}
	}
	return values, nil
}
