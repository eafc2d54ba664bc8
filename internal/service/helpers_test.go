package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/testutil"
	"github.com/Skotchmaster/inventory_api/internal/transport"
	"github.com/Skotchmaster/inventory_api/pkg/tokens"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		if ev, ok := e.Event.(mykafka.Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}

type fakeIndexer struct {
	mu      sync.Mutex
	docs    map[uint]es.ProductDocument
	deleted []uint
}

func (f *fakeIndexer) IndexProduct(_ context.Context, doc es.ProductDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndexer) DeleteProduct(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type testEnv struct {
	Auth       *AuthService
	Categories *CategoryService
	Products   *ProductService
	Events     *recordingPublisher
	Index      *fakeIndexer
	Store      *images.FSStore
	Factory    repo.Factory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	factory := repo.Factory{DB: testutil.NewDB(t)}
	events := &recordingPublisher{}
	index := &fakeIndexer{docs: map[uint]es.ProductDocument{}}
	store, err := images.NewFSStore(t.TempDir())
	require.NoError(t, err)

	return &testEnv{
		Auth: &AuthService{
			UoW: factory,
			Tokens: &tokens.Issuer{
				Secret:   []byte("test-jwt-secret"),
				Issuer:   "inventory-api",
				Audience: "inventory-clients",
				TTL:      30 * time.Minute,
			},
			RefreshTTL: 7 * 24 * time.Hour,
			Events:     events,
		},
		Categories: &CategoryService{UoW: factory, Events: events},
		Products:   &ProductService{UoW: factory, Images: store, Events: events, Index: index},
		Events:     events,
		Index:      index,
		Store:      store,
		Factory:    factory,
	}
}

func (env *testEnv) mustCategory(t *testing.T, name string) *transport.CategoryResponse {
	t.Helper()
	c, err := env.Categories.Create(context.Background(), transport.CategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (env *testEnv) mustProduct(t *testing.T, name, description string, categoryID uint) *transport.ProductResponse {
	t.Helper()
	p, err := env.Products.Create(context.Background(), transport.ProductRequest{
		Name:        name,
		Description: description,
		Price:       10,
		Stock:       1,
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
	return p
}
