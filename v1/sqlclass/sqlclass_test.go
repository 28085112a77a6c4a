package sqlclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectQueryType(t *testing.T) {
	tests := []struct {
		sql  string
		want QueryType
	}{
		{"SELECT * FROM users", Select},
		{"  select 1", Select},
		{"-- leading comment\nSELECT 1", Select},
		{"/* block\ncomment */ SELECT 1", Select},
		{"# mysql comment\nselect 1", Select},
		{"(SELECT 1)", Select},
		{"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent", Select},
		{"WITH gone AS (DELETE FROM t RETURNING *) INSERT INTO archive SELECT * FROM gone", Insert},
		{"VALUES (1), (2)", Select},
		{"INSERT INTO users (name) VALUES ('x')", Insert},
		{"REPLACE INTO users VALUES (1)", Insert},
		{"update users set name = 'a'", Update},
		{"DELETE FROM users WHERE id = 1", Delete},
		{"CREATE TABLE t (id int)", CreateTable},
		{"CREATE TEMPORARY TABLE t (id int)", CreateTable},
		{"CREATE UNLOGGED TABLE t (id int)", CreateTable},
		{"CREATE INDEX idx ON t (id)", Other},
		{"DROP TABLE IF EXISTS t", DropTable},
		{"DROP VIEW v", Other},
		{"ALTER TABLE t ADD COLUMN c int", AlterTable},
		{"SHOW TABLES", Other},
		{"", Other},
		{"-- only a comment", Other},
		{"SELECT 1; DELETE FROM users", Select},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectQueryType(tt.sql))
		})
	}
}

func TestExtractTableName(t *testing.T) {
	tests := []struct {
		sql    string
		want   string
		wantOK bool
	}{
		{"SELECT * FROM users", "users", true},
		{"SELECT * FROM public.users WHERE id = 1", "public.users", true},
		{`SELECT * FROM "public"."Order Items"`, "public.Order Items", true},
		{"SELECT * FROM `shop`.`orders` LIMIT 5", "shop.orders", true},
		{"SELECT (SELECT max(id) FROM other) FROM users", "users", true},
		{"SELECT 1", "", false},
		{"SELECT * FROM (SELECT 1) s", "", false},
		{"INSERT INTO audit.events (id) VALUES (1)", "audit.events", true},
		{"UPDATE ONLY users SET a = 1", "users", true},
		{"UPDATE LOW_PRIORITY IGNORE users SET a = 1", "users", true},
		{"DELETE FROM users WHERE id = 1", "users", true},
		{"CREATE TABLE IF NOT EXISTS app.t (id int)", "app.t", true},
		{"DROP TABLE IF EXISTS t", "t", true},
		{"ALTER TABLE ONLY t ADD COLUMN c int", "t", true},
		{"SHOW TABLES", "", false},
		{"SELECT 'FROM fake' AS x FROM real_table", "real_table", true},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			got, ok := ExtractTableName(tt.sql)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsEditable(t *testing.T) {
	editable := []string{
		"SELECT * FROM users",
		"SELECT id, name FROM public.users WHERE id > 10 ORDER BY id LIMIT 50",
		"SELECT * FROM users u WHERE u.id IN (SELECT user_id FROM orders GROUP BY user_id)",
		"SELECT * FROM users AS u",
	}
	for _, sql := range editable {
		assert.True(t, IsEditable(sql), sql)
	}

	notEditable := []string{
		"SELECT 1",
		"SELECT * FROM a JOIN b ON a.id = b.a_id",
		"SELECT * FROM a, b",
		"SELECT count(*) FROM users",
		"SELECT DISTINCT name FROM users",
		"SELECT name FROM users GROUP BY name",
		"SELECT * FROM a UNION SELECT * FROM b",
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"SELECT * FROM (SELECT * FROM users) s",
		"DELETE FROM users",
	}
	for _, sql := range notEditable {
		assert.False(t, IsEditable(sql), sql)
	}
}

func TestQueryTypeHelpers(t *testing.T) {
	assert.True(t, Select.ReturnsRows())
	assert.True(t, Other.ReturnsRows())
	assert.False(t, Update.ReturnsRows())
	assert.True(t, DropTable.Modifies())
	assert.Equal(t, "create_table", CreateTable.String())
}

func TestHasReturning(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"UPDATE public.users SET name = 'x' RETURNING id", true},
		{"insert into users (name) values ('a') returning *", true},
		{"DELETE FROM users WHERE id = 1 RETURNING id, name", true},
		{"UPDATE users SET note = 'returning customer' WHERE id = 1", false},
		{`UPDATE users SET "returning" = true`, false},
		{"UPDATE users SET name = 'x' -- RETURNING id", false},
		{"WITH gone AS (DELETE FROM t RETURNING *) INSERT INTO archive SELECT * FROM gone", false},
		{"SELECT returning FROM t", false},
		{"DELETE FROM users; SELECT 1 RETURNING", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, HasReturning(tt.sql))
		})
	}
}
