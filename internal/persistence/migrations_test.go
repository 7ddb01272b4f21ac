package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingExecer struct {
	statements []string
	failOn     string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.failOn != "" && sql == r.failOn {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestRunMigrations_AppliesSQLFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_b.sql", "B")
	writeFile(t, dir, "0001_a.sql", "A")
	writeFile(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	db := &recordingExecer{}
	require.NoError(t, RunMigrations(context.Background(), db, dir, zap.NewNop()))
	assert.Equal(t, []string{"A", "B"}, db.statements)
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001_a.sql", "A")
	writeFile(t, dir, "0002_b.sql", "B")
	writeFile(t, dir, "0003_c.sql", "C")

	db := &recordingExecer{failOn: "B"}
	err := RunMigrations(context.Background(), db, dir, zap.NewNop())
	assert.ErrorContains(t, err, "apply migration 0002_b.sql")
	assert.Equal(t, []string{"A"}, db.statements)
}

func TestRunMigrations_MissingDir(t *testing.T) {
	err := RunMigrations(context.Background(), &recordingExecer{}, filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	assert.ErrorContains(t, err, "read migrations")
}

func TestRunMigrations_RepositorySchema(t *testing.T) {
	db := &recordingExecer{}
	require.NoError(t, RunMigrations(context.Background(), db, filepath.Join("..", "..", "migrations"), zap.NewNop()))
	require.NotEmpty(t, db.statements)
	assert.Contains(t, db.statements[0], "CREATE TABLE IF NOT EXISTS tickets")
}
