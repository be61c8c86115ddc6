package migration

import (
	"testing"
	"testing/fstest"

	"quantprep/migrations"
)

func TestLoad_OrdersAndFilters(t *testing.T) {
	src := fstest.MapFS{
		"V2__add_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
		"V1__init.sql":      {Data: []byte("  CREATE TABLE t (a INT);\n")},
		"README.md":         {Data: []byte("ignored")},
		"v3__lower.sql":     {Data: []byte("ignored")},
	}

	migs, err := Load(src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[1].Version != 2 {
		t.Fatalf("unexpected order: %d, %d", migs[0].Version, migs[1].Version)
	}
	if migs[0].SQL != "CREATE TABLE t (a INT);" {
		t.Fatalf("expected trimmed sql, got %q", migs[0].SQL)
	}
	if migs[0].Checksum == "" || migs[0].Checksum == migs[1].Checksum {
		t.Fatalf("expected distinct checksums")
	}
}

func TestLoad_RejectsEmptyAndDuplicate(t *testing.T) {
	if _, err := Load(fstest.MapFS{"V1__empty.sql": {Data: []byte("  \n")}}); err == nil {
		t.Fatalf("expected error for empty migration")
	}
	dup := fstest.MapFS{
		"V1__a.sql": {Data: []byte("SELECT 1;")},
		"V1__b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := Load(dup); err == nil {
		t.Fatalf("expected error for duplicate version")
	}
}

func TestLoad_BundledSchema(t *testing.T) {
	migs, err := Load(migrations.FS)
	if err != nil {
		t.Fatalf("load bundled: %v", err)
	}
	if len(migs) == 0 || migs[0].Name != "init" {
		t.Fatalf("expected bundled init migration, got %+v", migs)
	}
}
