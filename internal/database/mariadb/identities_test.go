//go:build integration

package mariadb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/similarity"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDim = 4

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Driver:       "mysql",
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	// The port opens before the server accepts logins during first-run init.
	var pool *Pool
	for attempt := 0; attempt < 30; attempt++ {
		pool, err = NewPool(cfg)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool, testDim)

	id, err := repo.Create(ctx, database.NewIdentity{
		DisplayName: "Jan Novák",
		Embedding:   similarity.Vector{0.25, -1.5, 3, 0},
	})
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := repo.ReadOne(ctx, id)
		if err != nil {
			t.Fatalf("Failed to read identity: %v", err)
		}
		want := similarity.Vector{0.25, -1.5, 3, 0}
		for i := range want {
			if got.Embedding[i] != want[i] {
				t.Errorf("Embedding[%d] = %v, want %v", i, got.Embedding[i], want[i])
			}
		}
		if got.Description != "" {
			t.Errorf("Expected empty description, got %q", got.Description)
		}
	})

	t.Run("UnchangedUpdateStillReportsTrue", func(t *testing.T) {
		same := database.NewIdentity{DisplayName: "Jan Novák", Embedding: similarity.Vector{0.25, -1.5, 3, 0}}
		ok, err := repo.Update(ctx, id, same)
		if err != nil || !ok {
			t.Errorf("Expected (true, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("NameIsCaseSensitive", func(t *testing.T) {
		if _, err := repo.ReadByName(ctx, "jan novák"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		got, err := repo.ReadByName(ctx, "Jan Novák")
		if err != nil || got.ID != id {
			t.Errorf("Expected id %d, got %+v (%v)", id, got, err)
		}
	})

	t.Run("SoftFailMutations", func(t *testing.T) {
		ok, err := repo.Delete(ctx, id+1000)
		if err != nil || ok {
			t.Errorf("Expected (false, nil), got (%v, %v)", ok, err)
		}
		ok, err = repo.Update(ctx, id+1000, database.NewIdentity{DisplayName: "X", Embedding: similarity.Vector{1, 0, 0, 0}})
		if err != nil || ok {
			t.Errorf("Expected (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("DeleteThenCount", func(t *testing.T) {
		ok, err := repo.Delete(ctx, id)
		if err != nil || !ok {
			t.Fatalf("Expected (true, nil), got (%v, %v)", ok, err)
		}
		n, err := repo.Count(ctx)
		if err != nil || n != 0 {
			t.Errorf("Expected count 0, got %d (%v)", n, err)
		}
	})
}
