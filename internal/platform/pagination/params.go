package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit defines the fallback number of items returned when the client omits limit.
	DefaultLimit = 50
	// DefaultMaxLimit caps the supported limit to prevent unbounded queries.
	DefaultMaxLimit = 100
)

// Params bundles the pagination values extracted from a request.
type Params struct {
	Limit     int
	PageToken string
	Cursor    Cursor
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	ErrInvalidLimit     = errors.New("pagination: invalid limit")
	ErrInvalidPageToken = errors.New("pagination: invalid page token")
)

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params representation.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	limit, err := parseLimit(values.Get("limit"), opts)
	if err != nil {
		return Params{}, err
	}

	params := Params{Limit: limit}

	rawToken := strings.TrimSpace(values.Get("page_token"))
	if rawToken != "" {
		cursor, err := DecodeToken(rawToken)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = rawToken
		params.Cursor = cursor
	}

	return params, nil
}

func parseLimit(raw string, opts Options) (int, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	if strings.TrimSpace(raw) == "" {
		return defaultLimit, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidLimit)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidLimit)
	}
	if value > maxLimit {
		value = maxLimit
	}
	return value, nil
}
