package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-orchestrator/internal/config"
	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
)

func exerciseStore(t *testing.T, store service.MappingStore) {
	t.Helper()
	ctx := context.Background()

	m, err := store.LoadMapping(ctx, service.CatalogMappingKey)
	require.NoError(t, err)
	assert.Nil(t, m)

	saved := models.FieldMapping{"csa_mm2": "Size (mm2)", "vendor": "Make"}
	require.NoError(t, store.SaveMapping(ctx, service.CatalogMappingKey, saved))
	saved["vendor"] = "changed after save"

	m, err = store.LoadMapping(ctx, service.CatalogMappingKey)
	require.NoError(t, err)
	assert.Equal(t, models.FieldMapping{"csa_mm2": "Size (mm2)", "vendor": "Make"}, m)

	require.NoError(t, store.SaveMapping(ctx, service.CatalogMappingKey, models.FieldMapping{"cores": "Cores"}))
	m, err = store.LoadMapping(ctx, service.CatalogMappingKey)
	require.NoError(t, err)
	assert.Equal(t, models.FieldMapping{"cores": "Cores"}, m)

	m, err = store.LoadMapping(ctx, service.SizingMappingKey)
	require.NoError(t, err)
	assert.Nil(t, m, "keys are independent")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.db")
	store, err := OpenSQLStore(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mappings.db")

	store, err := OpenSQLStore(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, store.SaveMapping(ctx, service.SizingMappingKey, models.FieldMapping{"length": "Run (m)"}))
	require.NoError(t, store.Close())

	store, err = OpenSQLStore(ctx, "sqlite", path)
	require.NoError(t, err)
	defer store.Close()
	m, err := store.LoadMapping(ctx, service.SizingMappingKey)
	require.NoError(t, err)
	assert.Equal(t, "Run (m)", m["length"])
}

func TestOpenSQLStore_UnknownDriver(t *testing.T) {
	_, err := OpenSQLStore(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestSQLStore_Bind(t *testing.T) {
	pg := &SQLStore{driver: "postgres"}
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2, $3)", pg.bind("INSERT INTO t VALUES (?, ?, ?)"))

	lite := &SQLStore{driver: "sqlite"}
	assert.Equal(t, "SELECT ? FROM t", lite.bind("SELECT ? FROM t"))
}

func TestDataSourceConfig_DSN(t *testing.T) {
	cfg := DataSourceConfig{Host: "db", Port: 5432, User: "cable", Password: "secret", DBName: "catalog"}

	assert.Equal(t, "host=db port=5432 user=cable password=secret dbname=catalog sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestOpenMappingStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	store, closer, err := OpenMappingStore(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, closer.Close())

	cfg.MappingStore = config.StoreSQLite
	cfg.MappingDSN = filepath.Join(t.TempDir(), "m.db")
	store, closer, err = OpenMappingStore(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, store)
	assert.NoError(t, closer.Close())

	cfg.MappingStore = "etcd"
	_, _, err = OpenMappingStore(ctx, cfg, nil)
	assert.Error(t, err)
}
