package edgemodel_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/edgemodel/pkg/edgemodel"
	"github.com/chmenegatti/edgemodel/pkg/schema"
)

type fixtures struct {
	registry *schema.Registry
	person   *schema.Model
	pet      *schema.Model
	visit    *schema.Model
	tag      *schema.Model
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	reg := schema.NewRegistry(nil)
	f := &fixtures{registry: reg}

	f.person = reg.MustRegister(schema.Declaration{
		Name: "Person",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.Integer, Constraints: schema.PrimaryKey | schema.AutoIncrement},
			{Name: "name", Kind: schema.Text, Constraints: schema.NotNull},
			{Name: "email", Kind: schema.Text, Constraints: schema.Unique},
			{Name: "height", Kind: schema.Real},
			{Name: "born", Kind: schema.DateTime},
			{Name: "wakes", Kind: schema.Time},
			{Name: "level", Kind: schema.Integer, Default: 1},
		},
	})
	f.pet = reg.MustRegister(schema.Declaration{
		Name: "Pet",
		Fields: []schema.Field{
			{Name: "id", Kind: schema.Integer, Constraints: schema.PrimaryKey | schema.AutoIncrement},
			{Name: "name", Kind: schema.Text, Constraints: schema.NotNull},
			{Name: "owner", Kind: schema.Integer, References: f.person},
		},
	})
	f.visit = reg.MustRegister(schema.Declaration{
		Name: "Visit",
		Fields: []schema.Field{
			{Name: "clinic", Kind: schema.Text, Constraints: schema.PrimaryKey},
			{Name: "seq", Kind: schema.Integer, Constraints: schema.PrimaryKey},
			{Name: "notes", Kind: schema.Text},
		},
	})
	f.tag = reg.MustRegister(schema.Declaration{
		Name:   "Tag",
		Fields: []schema.Field{{Name: "label", Kind: schema.Text, Constraints: schema.PrimaryKey}},
	})
	return f
}

// setupTestDB opens a fresh database file with every fixture table created.
func setupTestDB(t *testing.T) (context.Context, *edgemodel.Database, *fixtures, *bytes.Buffer) {
	t.Helper()
	f := newFixtures(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbFile := filepath.Join(t.TempDir(), "edge_test.db")
	db, err := edgemodel.Open(dbFile, true,
		edgemodel.WithLogger(logger),
		edgemodel.WithRegistry(f.registry),
		edgemodel.WithForeignKeys(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.CreateTables(ctx, f.person, f.pet, f.visit, f.tag))
	return ctx, db, f, &logs
}

func newPerson(t *testing.T, db *edgemodel.Database, f *fixtures, name string) *edgemodel.Record {
	t.Helper()
	p := db.New(f.person)
	require.NoError(t, p.Set("name", name))
	return p
}
