package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"  postgres://u:p@h/db  ":            "postgres://u:p@h/db",
		"postgresql+asyncpg://u:p@h:5432/db": "postgresql://u:p@h:5432/db",
		"postgres+asyncpg://u:p@h/db":        "postgres://u:p@h/db",
		"postgresql+pgx://u:p@h/db":          "postgresql://u:p@h/db",
		"postgres+pgx://u:p@h/db":            "postgres://u:p@h/db",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeDSN(in), in)
	}
}

func TestOptions(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:5432/db")
	require.NoError(t, err)

	WithMaxConns(9)(cfg)
	WithMaxConns(0)(cfg)
	WithSearchPath("tenant_3")(cfg)
	applyDefaults(cfg)

	assert.Equal(t, int32(9), cfg.MaxConns)
	assert.Equal(t, "tenant_3", cfg.ConnConfig.RuntimeParams["search_path"])
	assert.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)
}

func TestSchemaOpener(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	open := SchemaOpener(dsn, WithMaxConns(2))

	pool, err := open(ctx, "public")
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	pool.Close()

	_, err = open(ctx, "schema_that_does_not_exist_42")
	require.ErrorIs(t, err, ErrSchemaNotFound)
}
