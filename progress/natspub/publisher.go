// Package natspub decorates a core.ProgressStore so every appended record is
// also published to NATS, letting dashboards or graders follow a learner's
// progress live.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/progress"
)

// DefaultSubjectPrefix is prepended to the learner id to form the subject.
const DefaultSubjectPrefix = "tutormesh.progress."

// Publisher is the subset of *nats.Conn the store needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Options configures the publishing store.
type Options struct {
	SubjectPrefix string
	Logger        logging.Logger
}

// Store appends to the inner store, then publishes the record. A publish
// failure is logged and does not fail the append.
type Store struct {
	inner core.ProgressStore
	pub   Publisher
	opts  Options
}

// New wraps inner with publisher pub.
func New(inner core.ProgressStore, pub Publisher, optFns ...func(o *Options)) *Store {
	opts := Options{SubjectPrefix: DefaultSubjectPrefix, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{inner: inner, pub: pub, opts: opts}
}

// Connect dials NATS at url and wraps inner. The returned close function
// drains the connection.
func Connect(url string, inner core.ProgressStore, optFns ...func(o *Options)) (*Store, func(), error) {
	nc, err := nats.Connect(url, nats.Name("tutormesh-progress"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	return New(inner, nc, optFns...), func() { _ = nc.Drain() }, nil
}

// Subject returns the subject records of userID are published on.
func (s *Store) Subject(userID string) string { return s.opts.SubjectPrefix + userID }

// Append implements core.ProgressStore.
func (s *Store) Append(ctx context.Context, rec core.ProgressRecord) error {
	if err := progress.Prepare(&rec); err != nil {
		return err
	}
	if err := s.inner.Append(ctx, rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		s.opts.Logger.Warn("progress.publish.marshal_failed", "error", err.Error())
		return nil
	}
	if err := s.pub.Publish(s.Subject(rec.UserID), data); err != nil {
		s.opts.Logger.Warn("progress.publish.failed", "subject", s.Subject(rec.UserID), "error", err.Error())
		return nil
	}
	s.opts.Logger.Debug("progress.publish.done", "subject", s.Subject(rec.UserID), "record_id", rec.ID)
	return nil
}

// List implements core.ProgressStore by delegating to the inner store.
func (s *Store) List(ctx context.Context, userID string) ([]core.ProgressRecord, error) {
	return s.inner.List(ctx, userID)
}
