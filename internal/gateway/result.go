package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/storefront-sync/internal/domain"
)

// Status classifies the outcome of a remote call.
type Status int

const (
	StatusOK Status = iota
	// StatusConflict is a rejection equivalent to success, like inserting an existing favorite.
	StatusConflict
	// StatusTransient is a failed call; the caller reverts its optimistic change.
	StatusTransient
	// StatusCanceled means the caller abandoned the call; the outcome is unknown.
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConflict:
		return "conflict"
	case StatusTransient:
		return "transient"
	case StatusCanceled:
		return "canceled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Succeeded reports whether the remote state now matches the request.
func (s Status) Succeeded() bool {
	return s == StatusOK || s == StatusConflict
}

// Result is what the engine branches on instead of raw errors.
type Result struct {
	Status Status
	Row    Row
	Rows   []Row
	Err    error
}

// Client is the boundary between the engine and a RemoteStore.
type Client struct {
	store RemoteStore
}

func NewClient(store RemoteStore) *Client {
	return &Client{store: store}
}

func (c *Client) Fetch(ctx context.Context, ownerID string, collection domain.Collection) Result {
	rows, err := c.store.Fetch(ctx, ownerID, collection)
	if err != nil {
		return classify(ctx, err, "fetch %s/%s", collection, ownerID)
	}
	return Result{Status: StatusOK, Rows: rows}
}

// Upsert creates or updates a row. Conflicts cannot happen with upsert semantics,
// but a backend that reports one is still treated as success.
func (c *Client) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) Result {
	row, err := c.store.Upsert(ctx, ownerID, collection, identity, payload)
	if err != nil {
		return classify(ctx, err, "upsert %s/%s/%s", collection, ownerID, identity)
	}
	return Result{Status: StatusOK, Row: row}
}

func (c *Client) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) Result {
	row, err := c.store.Insert(ctx, ownerID, collection, identity, payload)
	if err != nil {
		return classify(ctx, err, "insert %s/%s/%s", collection, ownerID, identity)
	}
	return Result{Status: StatusOK, Row: row}
}

func (c *Client) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) Result {
	err := c.store.Delete(ctx, ownerID, collection, identity)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return classify(ctx, err, "delete %s/%s/%s", collection, ownerID, identity)
	}
	return Result{Status: StatusOK}
}

func classify(ctx context.Context, err error, format string, args ...any) Result {
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	switch {
	case errors.Is(err, ErrConflict):
		return Result{Status: StatusConflict, Err: wrapped}
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return Result{Status: StatusCanceled, Err: wrapped}
	}
	log.Printf("remote call failed: %v", wrapped)
	return Result{Status: StatusTransient, Err: wrapped}
}
