// Package publish uploads check reports as JSON objects.
//
// Reports are written under a dated key:
//
//	<prefix>2026/10/19/20261019T101500Z-<uuid>.json
//
// Stores are provided for S3 and for a local directory.
package publish

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

// ContentType is the content type of published reports.
const ContentType = "application/json"

// Store persists a published object and returns its location.
type Store interface {
	Put(ctx context.Context, key string, body []byte, meta map[string]string) (string, error)
}

// Publisher writes reports to a Store.
type Publisher struct {
	store  Store
	prefix string
	now    func() time.Time
	newID  func() string
}

// New creates a Publisher writing keys under prefix.
func New(store Store, prefix string) *Publisher {
	return &Publisher{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Key returns the object key for a report published at t.
func (p *Publisher) Key(t time.Time, id string) string {
	t = t.UTC()
	return p.prefix + t.Format("2006/01/02/") + t.Format("20060102T150405Z") + "-" + id + ".json"
}

// Publish uploads the report and returns its location.
func (p *Publisher) Publish(ctx context.Context, r *urlcheck.Report) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", errors.New(errors.CodePublishFailed).Wrap(err)
	}

	meta := map[string]string{
		"endpoints": strconv.Itoa(r.Endpoints),
		"errors":    strconv.Itoa(r.Errors),
		"warnings":  strconv.Itoa(r.Warnings),
	}
	if r.Root != "" {
		meta["root"] = r.Root
	}

	location, err := p.store.Put(ctx, p.Key(p.now(), p.newID()), body, meta)
	if err != nil {
		return "", errors.New(errors.CodePublishFailed).Wrap(err)
	}
	return location, nil
}
