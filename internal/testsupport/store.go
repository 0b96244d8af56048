package testsupport

import (
	"context"
	"testing"

	"sipc/internal/config"
	"sipc/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddPack registers a pack for tests using the provided store.
func AddPack(t testing.TB, st *store.Store, hash, name string) *store.Pack {
	t.Helper()

	p, err := st.Add(context.Background(), hash, name)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return p
}
