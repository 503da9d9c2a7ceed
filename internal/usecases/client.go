package usecases

import (
	"context"
	"errors"
	"net/url"
)

// PanelClient is the slice of the upstream client the services need. Tests
// substitute a fake; production passes *upstream.Client.
type PanelClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// ErrInsufficientBalance is raised by the balance guard before a priced query
// is forwarded. No upstream call is made in that case.
var ErrInsufficientBalance = errors.New("insufficient balance for this query")
