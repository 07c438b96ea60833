package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "002_sample.sql", "CREATE TABLE b (id int);")
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE a (id int);")
	writeMigration(t, dir, "010_later.sql", "CREATE TABLE c (id int);")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	versions := []int{migrations[0].Version, migrations[1].Version, migrations[2].Version}
	if versions[0] != 1 || versions[1] != 2 || versions[2] != 10 {
		t.Errorf("wrong order: %v", versions)
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("wrong name: %s", migrations[0].Name)
	}
}

func TestLoadMigrationsSkipsNonNumericAndNonSQL(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE a (id int);")
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "notaversion_x.sql", "SELECT 1;")
	writeMigration(t, dir, "nounderscores.sql", "SELECT 1;")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "nope"))
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
