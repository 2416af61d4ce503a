package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lib/pq"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := loadMigrations(migrationFS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"0001_create_users_and_todos",
		"0002_add_deadline_and_priority",
		"0003_add_recurrence",
		"0004_add_recurrence_value",
	}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, m := range migrations {
		if m.Version != want[i] {
			t.Errorf("migration %d: expected version %s, got %s", i, want[i], m.Version)
		}
		if strings.TrimSpace(m.SQL) == "" {
			t.Errorf("migration %s is empty", m.Version)
		}
	}
}

func TestLoadMigrations_CascadingDeletes(t *testing.T) {
	migrations, err := loadMigrations(migrationFS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var schema strings.Builder
	for _, m := range migrations {
		schema.WriteString(m.SQL)
	}

	tests := []struct {
		name string
		fk   *regexp.Regexp
	}{
		{"subtasks removed with their todo", regexp.MustCompile(`todo_item_id\s+BIGINT\s+NOT NULL REFERENCES todo_items \(id\) ON DELETE CASCADE`)},
		{"todos removed with their user", regexp.MustCompile(`user_id\s+BIGINT\s+NOT NULL REFERENCES users \(id\) ON DELETE CASCADE`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.fk.MatchString(schema.String()) {
				t.Errorf("schema does not match %s", tt.fk)
			}
		})
	}
}

func TestLoadMigrations_SortsByName(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/0010_tenth.sql":  {Data: []byte("SELECT 10;")},
		"migrations/0001_first.sql":  {Data: []byte("SELECT 1;")},
		"migrations/README.md":       {Data: []byte("ignored")},
	}

	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, m := range migrations {
		got = append(got, m.Version)
	}
	if strings.Join(got, ",") != "0001_first,0002_second,0010_tenth" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestMapPQError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505", Constraint: "users_username_key"}, ErrDuplicate},
		{"wrapped unique violation", fmt.Errorf("scan: %w", &pq.Error{Code: "23505"}), ErrDuplicate},
		{"foreign key violation", &pq.Error{Code: "23503", Constraint: "todo_items_user_id_fkey"}, ErrReference},
		{"other pq error", &pq.Error{Code: "42P01"}, nil},
		{"non pq error", plain, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPQError(tt.err)
			if tt.want == nil {
				if !errors.Is(got, tt.err) {
					t.Errorf("expected error to be returned unchanged, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
