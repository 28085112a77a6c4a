package results

import (
	"testing"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(id string, rows ...[]any) Snapshot {
	return Snapshot{ID: id, Columns: []string{"id", "name"}, Rows: rows}
}

func TestCalculateOffset(t *testing.T) {
	assert.Equal(t, 100, CalculateOffset(2, 50))
	assert.Equal(t, 0, CalculateOffset(0, 50))
	assert.Equal(t, 0, CalculateOffset(-1, 50))
	assert.Equal(t, 0, CalculateOffset(3, 0))
}

func TestPagination_Navigation(t *testing.T) {
	p := Pagination{PageSize: 25, HasNextPage: true}

	p = p.Next()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 25, p.Offset())
	assert.False(t, p.HasNextPage)

	assert.Equal(t, 1, p.Next().Page, "no next page known")

	p = p.Prev().Prev()
	assert.Equal(t, 0, p.Page)

	p = Pagination{Page: 4, PageSize: 25, HasNextPage: true}.Reset()
	assert.Equal(t, Pagination{PageSize: 25}, p)

	assert.Equal(t, 2*DefaultPageSize, Pagination{Page: 2}.Offset())
}

func TestShouldUseCachedResults(t *testing.T) {
	assert.True(t, ShouldUseCachedResults(true, "public.users", "public.users"))
	assert.False(t, ShouldUseCachedResults(true, "public.users", "public.orders"))
	assert.False(t, ShouldUseCachedResults(false, "public.users", "public.users"))
	assert.False(t, ShouldUseCachedResults(true, "", ""))
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "public.users", BrowseIdentity(database.TableRef{Schema: "public", Table: "users"}))
	id := SQLIdentity("  select 1 ")
	assert.Equal(t, "sql:select 1", id)
	assert.True(t, IsSQLIdentity(id))
	assert.False(t, IsSQLIdentity("public.users"))
}

func TestCache_ReplaceBumpsVersion(t *testing.T) {
	c := NewCache(0)
	assert.Equal(t, Version(0), c.Version())
	_, ok := c.Current()
	assert.False(t, ok)

	v1 := c.Replace(snapshot("public.users", []any{1, "ann"}))
	v2 := c.Replace(snapshot("public.orders"))
	assert.Equal(t, Version(1), v1)
	assert.Equal(t, Version(2), v2)

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "public.orders", cur.ID)
	assert.Equal(t, v2, cur.Version)
	assert.NotNil(t, cur.Rows, "rows and columns are set together")

	prev, ok := c.Previous()
	require.True(t, ok)
	assert.Equal(t, "public.users", prev.ID)
}

func TestCache_InvalidateKeepsPrevious(t *testing.T) {
	c := NewCache(0)
	v := c.Replace(snapshot("sql:select 1", []any{1}))

	c.Invalidate()

	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, v, c.Version(), "invalidation does not bump the version")

	prev, ok := c.Previous()
	require.True(t, ok)
	assert.Equal(t, [][]any{{1}}, prev.Rows)
}

func TestCache_ClearBumpsVersion(t *testing.T) {
	c := NewCache(0)
	c.Replace(snapshot("public.users"))
	assert.Equal(t, Version(2), c.Clear())
	_, ok := c.Current()
	assert.False(t, ok)
}

func TestCache_ActivateAvoidsRequery(t *testing.T) {
	c := NewCache(0)
	c.Replace(snapshot("public.users", []any{1, "ann"}))
	c.Replace(snapshot("public.orders", []any{7, "book"}))

	snap, ok := c.Activate("public.users")
	require.True(t, ok)
	assert.Equal(t, [][]any{{1, "ann"}}, snap.Rows)
	assert.Equal(t, Version(3), c.Version())

	_, ok = c.Activate("public.missing")
	assert.False(t, ok)
	assert.Equal(t, Version(3), c.Version())
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Replace(snapshot("a"))
	c.Replace(snapshot("b"))
	_, ok := c.Lookup("a") // lookups do not refresh recency
	require.True(t, ok)
	c.Replace(snapshot("c"))

	assert.Equal(t, 2, c.Len())
	_, ok = c.Lookup("a")
	assert.False(t, ok)
	_, ok = c.Lookup("c")
	assert.True(t, ok)
}

func TestCache_MutateAndRestore(t *testing.T) {
	c := NewCache(0)
	v := c.Replace(snapshot("public.users", []any{1, "ann"}, []any{2, "bob"}))
	original, _ := c.Current()

	ok := c.Mutate(v, func(s *Snapshot) {
		s.Rows[0][1] = "anna"
	})
	require.True(t, ok)
	assert.Equal(t, "ann", original.Rows[0][1], "earlier snapshots are not aliased")

	cur, _ := c.Current()
	assert.Equal(t, "anna", cur.Rows[0][1])
	assert.Equal(t, v, c.Version())

	require.True(t, c.Restore(v, original.Rows))
	cur, _ = c.Current()
	assert.Equal(t, "ann", cur.Rows[0][1])

	c.Replace(snapshot("public.orders"))
	assert.False(t, c.Restore(v, original.Rows), "stale version")
	cur, _ = c.Current()
	assert.Equal(t, "public.orders", cur.ID)
}

func TestSnapshot_Editable(t *testing.T) {
	s := Snapshot{Columns: []string{}}
	assert.True(t, s.HasResults())
	assert.False(t, s.Editable())

	s.Table = database.TableRef{Schema: "public", Table: "users"}
	assert.False(t, s.Editable())
	s.PrimaryKey = []string{"id"}
	assert.True(t, s.Editable())
}

func TestCache_ForgetTable(t *testing.T) {
	users := database.TableRef{Schema: "public", Table: "users"}
	c := NewCache(0)

	browse := snapshot("public.users")
	browse.Table = users
	c.Replace(browse)

	query := snapshot("sql:select * from users")
	query.Table = database.TableRef{Table: "users"}
	c.Replace(query)

	other := snapshot("public.orders")
	other.Table = database.TableRef{Schema: "public", Table: "orders"}
	c.Replace(other)

	archived := snapshot("archive.users")
	archived.Table = database.TableRef{Schema: "archive", Table: "users"}
	c.Replace(archived)

	c.ForgetTable(database.TableRef{Schema: "public", Table: "USERS"})
	_, ok := c.Lookup("public.users")
	assert.False(t, ok)
	_, ok = c.Lookup("sql:select * from users")
	assert.False(t, ok, "unqualified snapshot matches any schema")
	_, ok = c.Lookup("public.orders")
	assert.True(t, ok)
	_, ok = c.Lookup("archive.users")
	assert.True(t, ok, "current result is never forgotten")

	c.Replace(snapshot("sql:delete from users"))
	c.ForgetTable(database.TableRef{Table: "users"})
	_, ok = c.Lookup("archive.users")
	assert.False(t, ok, "unqualified write matches any schema")
	_, ok = c.Lookup("public.orders")
	assert.True(t, ok)
}
