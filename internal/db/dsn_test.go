package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"url passthrough", "postgres://u:p@localhost:5432/invoices", "postgres://u:p@localhost:5432/invoices"},
		{"postgresql scheme", "postgresql://u@h/db", "postgresql://u@h/db"},
		{"kv adds sslmode", "host=localhost user=app dbname=invoices", "host=localhost user=app dbname=invoices sslmode=disable"},
		{"kv keeps sslmode", "host=h dbname=d sslmode=require", "host=h dbname=d sslmode=require"},
		{"collapses whitespace", "  host=h   dbname=d  ", "host=h dbname=d sslmode=disable"},
		{"trims quotes", `"postgres://u@h/db"`, "postgres://u@h/db"},
		{"sqlite passthrough", "file:test.db?mode=memory", "file:test.db?mode=memory"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDSN(tc.in); got != tc.want {
			t.Errorf("%s: NormalizeDSN(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
