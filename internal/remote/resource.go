package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	syncerr "github.com/studyforge/studysync/internal/errors"
	"github.com/studyforge/studysync/internal/models"
)

// Resource is the remote port for one domain: list, create, update and
// delete against /{domain}. Create is idempotent with respect to the
// client-supplied record id; the server must not create duplicates
// when the same id is posted twice.
type Resource[T models.Record] struct {
	client *Client
	domain string
}

// NewResource binds a domain name (also the URL path segment) to the
// shared client.
func NewResource[T models.Record](client *Client, domain string) *Resource[T] {
	return &Resource[T]{client: client, domain: domain}
}

// Domain returns the resource's domain name.
func (r *Resource[T]) Domain() string { return r.domain }

// List fetches the full remote collection. Items that fail the shape
// check are dropped with a warning; the rest of the collection is
// returned normally.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	body, err := r.client.do(ctx, http.MethodGet, "/"+r.domain, nil)
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, &syncerr.NetworkError{
			Endpoint: "/" + r.domain,
			Err:      fmt.Errorf("response has no items array"),
		}
	}

	var records []T

	for _, item := range items.Array() {
		rec, err := r.decodeItem(item)
		if err != nil {
			r.client.logger.Warn("dropping invalid remote record",
				slog.String("domain", r.domain),
				slog.String("error", err.Error()),
			)

			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// decodeItem checks the minimal syncable shape with gjson before
// committing to a full unmarshal, then runs the domain validation.
func (r *Resource[T]) decodeItem(item gjson.Result) (T, error) {
	var rec T

	if item.Get("id").String() == "" {
		return rec, &syncerr.ValidationError{Domain: r.domain, Reason: "missing id"}
	}

	if item.Get("updatedAt").Int() <= 0 {
		return rec, &syncerr.ValidationError{Domain: r.domain, ID: item.Get("id").String(), Reason: "missing updatedAt"}
	}

	if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
		return rec, &syncerr.ValidationError{Domain: r.domain, ID: item.Get("id").String(), Reason: err.Error()}
	}

	if err := rec.Validate(); err != nil {
		return rec, &syncerr.ValidationError{Domain: r.domain, ID: rec.RecordID(), Reason: err.Error()}
	}

	return rec, nil
}

// Create posts a new record. The record carries its client-assigned id.
func (r *Resource[T]) Create(ctx context.Context, rec T) (T, error) {
	return r.send(ctx, http.MethodPost, "/"+r.domain, rec)
}

// Update puts the full record value for an existing id.
func (r *Resource[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	return r.send(ctx, http.MethodPut, "/"+r.domain+"/"+id, rec)
}

// Delete removes a record remotely. A 404 counts as success so deletes
// are idempotent across retried cycles.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	endpoint := "/" + r.domain + "/" + id

	_, err := r.client.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		var ne *syncerr.NetworkError
		if errors.As(err, &ne) && ne.Status == http.StatusNotFound {
			return nil
		}

		return err
	}

	return nil
}

func (r *Resource[T]) send(ctx context.Context, method, endpoint string, rec T) (T, error) {
	var zero T

	payload, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("marshalling %s record: %w", r.domain, err)
	}

	body, err := r.client.do(ctx, method, endpoint, payload)
	if err != nil {
		return zero, err
	}

	// Some backends answer writes with an empty body; the sent record
	// is then the authoritative value.
	if len(body) == 0 {
		return rec, nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return rec, nil
	}

	return out, nil
}
