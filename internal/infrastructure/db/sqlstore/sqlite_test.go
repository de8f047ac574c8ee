package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/user-service/internal/core/domain"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "users.db") + "?_busy_timeout=5000"
	db, err := Open(context.Background(), Config{Dialect: SQLite, DSN: dsn}, zerolog.Nop())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLite_InsertAndFind(t *testing.T) {
	repo := NewUserRepository(openSQLite(t))
	ctx := context.Background()

	created, err := repo.Insert(ctx, "alice", "$2a$hash", domain.Roles{"admin", "ops"})
	require.NoError(t, err)

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, domain.Roles{"admin", "ops"}, byName.Roles)
	assert.True(t, created.CreatedAt.Equal(byName.CreatedAt))

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.Insert(ctx, "alice", "other", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)
}

func TestSQLite_UsernamesAreCaseSensitive(t *testing.T) {
	repo := NewUserRepository(openSQLite(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, "alice", "h", nil)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "Alice", "h", nil)
	require.NoError(t, err)

	u, err := repo.FindByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSQLite_ConcurrentInsertExactlyOneWins(t *testing.T) {
	repo := NewUserRepository(openSQLite(t))
	ctx := context.Background()

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		wins, dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, "bob", "h", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicateUser):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, dups)
}
