package database

import (
	"context"
	"errors"
	"sync"
)

var (
	identityStore     func() IdentityStore
	identityStoreName string
	providerMu        sync.RWMutex
)

// RegisterIdentityStore registers the active identity store constructor.
// Backend packages (postgres, mariadb) are wired here by the serve command to
// avoid import cycles.
func RegisterIdentityStore(name string, store func() IdentityStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	identityStore = store
	identityStoreName = name
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return identityStore != nil
}

// BackendName returns the name of the registered backend, or "" if none.
func BackendName() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return identityStoreName
}

// GetIdentityStore returns the registered identity store.
func GetIdentityStore(ctx context.Context) (IdentityStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if identityStore == nil {
		return nil, errors.New("identity store not initialized: DATABASE_URL is required")
	}
	return identityStore(), nil
}
