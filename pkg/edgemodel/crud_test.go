// pkg/edgemodel/crud_test.go
package edgemodel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmenegatti/edgemodel/pkg/edgemodel"
	"github.com/chmenegatti/edgemodel/pkg/schema"
)

func TestPersonScenario(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	ada := newPerson(t, db, f, "Ada")
	res := ada.Save(ctx)
	require.True(t, res.OK(), "save failed: %v", res.Error)
	assert.Equal(t, edgemodel.OpInsert, res.Op)
	id := ada.Int("id")
	assert.Positive(t, id)
	assert.Equal(t, edgemodel.Persisted, ada.State())

	loaded := db.New(f.person)
	require.NoError(t, loaded.Set("id", id))
	res = loaded.Load(ctx)
	require.True(t, res.OK(), "load failed: %v", res.Error)
	assert.Equal(t, "Ada", loaded.Text("name"))

	res = loaded.Delete(ctx)
	require.True(t, res.OK(), "delete failed: %v", res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	again := db.New(f.person)
	require.NoError(t, again.Set("id", id))
	res = again.Load(ctx)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotFound)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	born := time.Date(1815, 12, 10, 8, 30, 0, 0, time.UTC)

	p := db.New(f.person)
	require.NoError(t, p.LoadFrom(map[string]any{
		"name":   "Ada",
		"email":  "ada@example.com",
		"height": 1.65,
		"born":   born,
		"wakes":  6*time.Hour + 45*time.Minute,
		"level":  7,
	}))
	require.True(t, p.Save(ctx).OK())

	fresh := db.New(f.person)
	require.NoError(t, fresh.Set("id", p.Int("id")))
	res := fresh.Load(ctx)
	require.True(t, res.OK(), "load failed: %v", res.Error)

	assert.Equal(t, "Ada", fresh.Text("name"))
	assert.Equal(t, "ada@example.com", fresh.Text("email"))
	assert.Equal(t, 1.65, fresh.Real("height"))
	assert.True(t, born.Equal(fresh.DateTime("born")), "born: got %v", fresh.DateTime("born"))
	assert.Equal(t, 6*time.Hour+45*time.Minute, fresh.Time("wakes"))
	assert.Equal(t, int64(7), fresh.Int("level"))
	assert.Equal(t, edgemodel.Persisted, fresh.State())
}

func TestSave_InsertAppliesDefaultsAndNulls(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	p := newPerson(t, db, f, "Grace")
	require.True(t, p.Save(ctx).OK())

	assert.Equal(t, int64(1), p.Int("level"), "default level stored")
	assert.False(t, p.IsSet("email"), "unset field reads back as NULL")
	assert.Nil(t, p.Get("born"))
}

func TestSave_UpdatesPersistedRecord(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	p := newPerson(t, db, f, "Ada")
	require.True(t, p.Save(ctx).OK())

	require.NoError(t, p.Set("name", "Ada Lovelace"))
	res := p.Save(ctx)
	require.True(t, res.OK(), "update failed: %v", res.Error)
	assert.Equal(t, edgemodel.OpUpdate, res.Op)
	assert.Equal(t, int64(1), res.RowsAffected)

	all, err := db.New(f.person).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ada Lovelace", all[0].Text("name"))
}

func TestSave_PendingKeyInsertsWithGivenKey(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	p := newPerson(t, db, f, "Linus")
	require.NoError(t, p.Set("id", 42))
	assert.Equal(t, edgemodel.Pending, p.State())

	res := p.Save(ctx)
	require.True(t, res.OK(), "save failed: %v", res.Error)
	assert.Equal(t, edgemodel.OpInsert, res.Op)
	assert.Equal(t, int64(42), p.Int("id"))
	assert.Equal(t, edgemodel.Persisted, p.State())
}

func TestSave_ConstraintViolation(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	first := newPerson(t, db, f, "Ada")
	require.NoError(t, first.Set("email", "same@example.com"))
	require.True(t, first.Save(ctx).OK())

	second := newPerson(t, db, f, "Eve")
	require.NoError(t, second.Set("email", "same@example.com"))
	res := second.Save(ctx)
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Error, edgemodel.ErrConstraint)
	assert.NotErrorIs(t, res.Error, edgemodel.ErrEngine)

	var qe *edgemodel.QueryError
	require.ErrorAs(t, res.Error, &qe)
	assert.Equal(t, edgemodel.OpInsert, qe.Op)
	assert.Equal(t, "Person", qe.Model)

	nameless := db.New(f.person)
	res = nameless.Save(ctx)
	assert.ErrorIs(t, res.Error, edgemodel.ErrConstraint, "NOT NULL name")
}

func TestDelete_NeverPersisted(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	p := newPerson(t, db, f, "Nobody")
	res := p.Delete(ctx)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotPersisted)

	require.NoError(t, p.Set("id", 999))
	res = p.Delete(ctx)
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotFound)
}

func TestLoad_UnsetKey(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	res := db.New(f.person).Load(ctx)
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotPersisted)
}

func TestGetAll_OneSnapshotPerRow(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	names := []string{"Ada", "Grace", "Barbara"}
	for _, n := range names {
		require.True(t, newPerson(t, db, f, n).Save(ctx).OK())
	}

	receiver := db.New(f.person)
	all, err := receiver.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	for i, rec := range all {
		assert.Equal(t, names[i], rec.Text("name"))
		assert.Equal(t, int64(i+1), rec.Int("id"))
		assert.Equal(t, edgemodel.Persisted, rec.State())
		assert.NotSame(t, receiver, rec)
	}
	// The receiver is left holding the last row.
	assert.Equal(t, "Barbara", receiver.Text("name"))

	// Snapshots are independent of each other and of the receiver.
	require.NoError(t, all[0].Set("name", "changed"))
	assert.Equal(t, "Grace", all[1].Text("name"))
	assert.Equal(t, "Barbara", receiver.Text("name"))
}

func TestGetAll_EmptyTable(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	all, err := db.New(f.person).GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestForeignKey_RelatedRecord(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	owner := newPerson(t, db, f, "Ada")
	pet := db.New(f.pet)
	require.NoError(t, pet.Set("name", "Rex"))
	// The owner is assigned before it has a key; Save picks the key up.
	require.NoError(t, pet.Set("owner", owner))
	assert.False(t, pet.IsSet("owner"))

	require.True(t, owner.Save(ctx).OK())
	res := pet.Save(ctx)
	require.True(t, res.OK(), "save failed: %v", res.Error)

	assert.Equal(t, owner.Int("id"), pet.Int("owner"))
	assert.Same(t, owner, pet.Related("owner"))

	loaded := db.New(f.pet)
	require.NoError(t, loaded.Set("id", pet.Int("id")))
	require.True(t, loaded.Load(ctx).OK())
	assert.Equal(t, owner.Int("id"), loaded.Int("owner"))
	assert.Nil(t, loaded.Related("owner"))
}

func TestForeignKey_Enforced(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	pet := db.New(f.pet)
	require.NoError(t, pet.Set("name", "Stray"))
	require.NoError(t, pet.Set("owner", 12345))
	res := pet.Save(ctx)
	assert.ErrorIs(t, res.Error, edgemodel.ErrConstraint)
}

func TestCompositeKey(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	v := db.New(f.visit)
	require.NoError(t, v.Set("clinic", "north"))
	assert.Equal(t, edgemodel.Transient, v.State())
	require.NoError(t, v.Set("seq", 1))
	assert.Equal(t, edgemodel.Pending, v.State())
	require.NoError(t, v.Set("notes", "checkup"))
	require.True(t, v.Save(ctx).OK())

	require.NoError(t, v.Set("notes", "follow-up"))
	res := v.Save(ctx)
	require.True(t, res.OK())
	assert.Equal(t, edgemodel.OpUpdate, res.Op)

	other := db.New(f.visit)
	require.NoError(t, other.LoadFrom(map[string]any{"clinic": "north", "seq": 1}))
	require.True(t, other.Load(ctx).OK())
	assert.Equal(t, "follow-up", other.Text("notes"))
	assert.Equal(t, map[string]any{"clinic": "north", "seq": int64(1)}, other.Keys())
}

func TestKeyOnlyModel(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)

	tag := db.New(f.tag)
	require.NoError(t, tag.Set("label", "edge"))
	res := tag.Save(ctx)
	require.True(t, res.OK())
	assert.Equal(t, edgemodel.OpInsert, res.Op)

	// The row exists and no column besides the key can change.
	res = tag.Save(ctx)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Error, edgemodel.ErrNothingToUpdate)
	assert.Equal(t, edgemodel.OpUpdate, res.Op)
	assert.Zero(t, res.RowsAffected)
	assert.Equal(t, edgemodel.Persisted, tag.State())

	all, err := db.New(f.tag).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetByID(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	require.True(t, newPerson(t, db, f, "Ada").Save(ctx).OK())
	require.True(t, newPerson(t, db, f, "Grace").Save(ctx).OK())

	p := db.New(f.person)
	res := p.GetByID(ctx, 2)
	require.True(t, res.OK(), "get by id failed: %v", res.Error)
	assert.Equal(t, "Grace", p.Text("name"))
	assert.Equal(t, edgemodel.Persisted, p.State())

	res = p.GetByID(ctx, 77)
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotFound)

	// Caller text never reaches the SQL.
	res = p.GetByID(ctx, "1 OR 1=1")
	assert.ErrorIs(t, res.Error, schema.ErrKindMismatch)
}

func TestGetSQL(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	for _, n := range []string{"Ada", "Grace", "Alan"} {
		require.True(t, newPerson(t, db, f, n).Save(ctx).OK())
	}

	p := db.New(f.person)
	got, err := p.GetSQL(ctx, "SELECT name, id FROM people WHERE name LIKE ? ORDER BY name", "A%")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].Text("name"))
	assert.Equal(t, "Alan", got[1].Text("name"))
	assert.False(t, got[0].IsSet("email"), "columns not selected stay unset")

	// Named placeholders resolve to the receiver's values.
	require.NoError(t, p.Set("name", "Grace"))
	got, err = p.GetSQL(ctx, "SELECT * FROM people WHERE name = :name")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Int("id"))

	_, err = p.GetSQL(ctx, "SELECT 1 AS unrelated")
	assert.ErrorIs(t, err, edgemodel.ErrEngine)

	_, err = p.GetSQL(ctx, "SELECT nope FROM people")
	assert.Error(t, err)
}

func TestOperationsOnClosedDatabase(t *testing.T) {
	ctx, db, f, _ := setupTestDB(t)
	p := newPerson(t, db, f, "Ada")
	require.NoError(t, db.Close())

	res := p.Save(ctx)
	assert.ErrorIs(t, res.Error, edgemodel.ErrNotOpened)
	_, err := p.GetAll(ctx)
	assert.ErrorIs(t, err, edgemodel.ErrNotOpened)
}
