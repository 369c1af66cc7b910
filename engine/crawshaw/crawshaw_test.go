package crawshaw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chamira/SQLiteManager/engine"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawshaw.db")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to create db file: %v", err)
	}

	d, err := engine.Lookup(Name)
	if err != nil {
		t.Fatalf("Lookup(%q) failed: %v", Name, err)
	}
	c, err := d.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	if err := engine.Exec(c, "CREATE TABLE t (a TEXT, b REAL)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	stmt, err := c.Prepare("INSERT INTO t (a, b) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Prepare() failed: %v", err)
	}
	stmt.BindText(1, "Fernando")
	stmt.BindNull(2)
	if _, err := stmt.Step(); err != nil {
		t.Fatalf("Step() failed: %v", err)
	}
	stmt.Finalize()

	sel, err := c.Prepare("SELECT a, b FROM t")
	if err != nil {
		t.Fatalf("Prepare(select) failed: %v", err)
	}
	defer sel.Finalize()
	if row, err := sel.Step(); err != nil || !row {
		t.Fatalf("Step() = %v, %v; want a row", row, err)
	}
	if got := sel.ColumnText(0); got != "Fernando" {
		t.Errorf("ColumnText(0) = %q", got)
	}
	if got := sel.ColumnType(1); got != engine.TypeNull {
		t.Errorf("ColumnType(1) = %v, want NULL", got)
	}
}

func TestSyntaxErrorCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawshaw.db")
	os.WriteFile(path, nil, 0o600)

	c, err := Driver{}.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	_, err = c.Prepare("SELEC 1")
	if err == nil {
		t.Fatal("Prepare() of invalid SQL should fail")
	}
	if engine.Primary(engine.Code(err)) != engine.ResultError {
		t.Errorf("Code(err) = %d, want primary SQLITE_ERROR", engine.Code(err))
	}
}
