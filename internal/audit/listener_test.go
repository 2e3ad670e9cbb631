package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"retailcore/pkg/requestcontext"
)

// account is a minimal audited entity for exercising the listener.
type account struct {
	id     int64
	name   string
	secret string
}

func (a *account) AuditEntityName() string { return "Account" }
func (a *account) AuditEntityID() int64    { return a.id }
func (a *account) AuditSnapshot() Snapshot {
	return Snapshot{"name": a.name, "api_secret": a.secret}
}
func (a *account) AuditSensitiveFields() []string { return []string{"api_secret"} }

// brokenEntity panics while snapshotting.
type brokenEntity struct{ account }

func (b *brokenEntity) AuditSnapshot() Snapshot { panic("snapshot exploded") }

type ListenerSuite struct {
	suite.Suite
	store    *InMemoryStore
	cache    *MemoryCache
	listener *Listener
	ctx      context.Context
}

func TestListenerSuite(t *testing.T) {
	suite.Run(t, new(ListenerSuite))
}

func (s *ListenerSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.cache = NewMemoryCache(time.Minute, nil, nil)
	writer := NewWriter(s.store, nil, log, nil)
	s.listener = NewListener(s.cache, writer, NewMetadataResolver(log), log, nil)
	s.ctx = context.Background()
}

func (s *ListenerSuite) records() []Record {
	page, err := s.store.Search(s.ctx, Filter{})
	s.Require().NoError(err)
	return page.Records
}

func (s *ListenerSuite) TestEntityCreated() {
	s.Run("records a create with new state only", func() {
		s.listener.EntityCreated(s.ctx, &account{id: 1, name: "Ada", secret: "raw"})

		records := s.records()
		s.Require().Len(records, 1)
		rec := records[0]
		s.Equal(ActionCreate, rec.Action)
		s.Equal("Account", rec.EntityType)
		s.Require().NotNil(rec.EntityID)
		s.Equal(int64(1), *rec.EntityID)
		s.Nil(rec.OldValue, "creates have no prior state")
		s.Require().NotNil(rec.NewValue)
		s.Equal("Ada", rec.NewValue["name"])
	})

	s.Run("masks sensitive fields at write time", func() {
		s.listener.EntityCreated(s.ctx, &account{id: 2, name: "Grace", secret: "raw-secret"})

		records := s.records()
		s.Equal(RedactionMarker, records[0].NewValue["api_secret"])
	})
}

func (s *ListenerSuite) TestEntityUpdating() {
	s.Run("diffs against the snapshot cached at load", func() {
		a := &account{id: 1, name: "Ada", secret: "old-secret"}
		s.listener.EntityLoaded(s.ctx, a)

		a.name = "Ada L."
		a.secret = "new-secret"
		s.listener.EntityUpdating(s.ctx, a)

		records := s.records()
		s.Require().Len(records, 1)
		rec := records[0]
		s.Equal(ActionUpdate, rec.Action)
		s.Equal("Ada", rec.OldValue["name"])
		s.Equal("Ada L.", rec.NewValue["name"])
	})

	s.Run("masks both sides of the diff", func() {
		a := &account{id: 1, name: "Ada", secret: "old-secret"}
		s.listener.EntityLoaded(s.ctx, a)
		a.secret = "new-secret"
		s.listener.EntityUpdating(s.ctx, a)

		rec := s.records()[0]
		s.Equal(RedactionMarker, rec.OldValue["api_secret"])
		s.Equal(RedactionMarker, rec.NewValue["api_secret"])
	})

	s.Run("without a cached baseline the update is skipped, never fabricated", func() {
		before := len(s.records())

		a := &account{id: 9, name: "Phantom"}
		s.listener.EntityUpdating(s.ctx, a)

		s.Len(s.records(), before)
	})

	s.Run("the baseline is consumed by the first update", func() {
		before := len(s.records())

		a := &account{id: 1, name: "Ada"}
		s.listener.EntityLoaded(s.ctx, a)

		a.name = "Ada L."
		s.listener.EntityUpdating(s.ctx, a)
		a.name = "Ada Lovelace"
		s.listener.EntityUpdating(s.ctx, a)

		s.Len(s.records(), before+1, "second update has no baseline and is skipped")
	})
}

func (s *ListenerSuite) TestEntityDeleting() {
	s.Run("records a delete with prior state only", func() {
		a := &account{id: 1, name: "Ada", secret: "raw"}
		s.listener.EntityDeleting(s.ctx, a)

		records := s.records()
		s.Require().Len(records, 1)
		rec := records[0]
		s.Equal(ActionDelete, rec.Action)
		s.Require().NotNil(rec.OldValue)
		s.Equal("Ada", rec.OldValue["name"])
		s.Equal(RedactionMarker, rec.OldValue["api_secret"])
		s.Nil(rec.NewValue, "deletes have no resulting state")
	})

	s.Run("drops any stale cached snapshot", func() {
		a := &account{id: 1, name: "Ada"}
		s.listener.EntityLoaded(s.ctx, a)
		s.listener.EntityDeleting(s.ctx, a)

		s.Equal(0, s.cache.Len())
	})
}

func (s *ListenerSuite) TestActorAndCorrelationMetadata() {
	s.Run("captures actor, client metadata and correlation", func() {
		ctx := requestcontext.WithActorUserID(s.ctx, 77)
		ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "test-agent/1.0")
		ctx, id := StartCorrelation(ctx)

		s.listener.EntityCreated(ctx, &account{id: 1, name: "Ada"})

		rec := s.records()[0]
		s.Require().NotNil(rec.ActorUserID)
		s.Equal(int64(77), *rec.ActorUserID)
		s.Require().NotNil(rec.ActorIP)
		s.Equal("203.0.113.9", *rec.ActorIP)
		s.Require().NotNil(rec.ActorUserAgent)
		s.Equal("test-agent/1.0", *rec.ActorUserAgent)
		s.Require().NotNil(rec.CorrelationID)
		s.Equal(id, *rec.CorrelationID)
	})

	s.Run("system mutations record nil actor fields", func() {
		s.listener.EntityCreated(s.ctx, &account{id: 1, name: "Ada"})

		rec := s.records()[0]
		s.Nil(rec.ActorUserID)
		s.Nil(rec.ActorIP)
		s.Nil(rec.CorrelationID)
	})

	s.Run("mutations in one scope share the identifier", func() {
		ctx, id := StartCorrelation(s.ctx)

		a := &account{id: 1, name: "Ada"}
		s.listener.EntityCreated(ctx, a)
		s.listener.EntityLoaded(ctx, a)
		a.name = "Ada L."
		s.listener.EntityUpdating(ctx, a)

		correlated, err := s.store.ListByCorrelation(ctx, id)
		s.Require().NoError(err)
		s.Len(correlated, 2)
	})
}

func (s *ListenerSuite) TestReactionsNeverEscape() {
	s.Run("a panicking snapshot is recovered", func() {
		s.NotPanics(func() {
			s.listener.EntityCreated(s.ctx, &brokenEntity{})
		})
		s.Empty(s.records())
	})

	s.Run("a failing store write is swallowed", func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		writer := NewWriter(failingStore{NewInMemoryStore()}, nil, log, nil)
		listener := NewListener(s.cache, writer, NewMetadataResolver(log), log, nil)

		s.NotPanics(func() {
			listener.EntityCreated(s.ctx, &account{id: 1, name: "Ada"})
		})
	})
}

// failingStore rejects every append.
type failingStore struct{ *InMemoryStore }

func (failingStore) Append(context.Context, *Record) error {
	return context.DeadlineExceeded
}
