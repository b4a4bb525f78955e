package storage

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestSeenKeysRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)

	seen, err := db.Seen("1::PENDING")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("fresh store must be empty")
	}

	if err := db.MarkSeen([]string{"1::PENDING", "2::ASSIGNED"}); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"1::PENDING", "2::ASSIGNED"} {
		seen, err := db.Seen(key)
		if err != nil {
			t.Fatal(err)
		}
		if !seen {
			t.Fatalf("key %s not recorded", key)
		}
	}

	// Re-marking already-seen keys is a no-op, not an error.
	if err := db.MarkSeen([]string{"1::PENDING", "3::SENT"}); err != nil {
		t.Fatal(err)
	}

	set, err := db.SeenSet()
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 3 {
		t.Fatalf("set=%v", set)
	}
}

func TestSeenKeysPersistAcrossReopen(t *testing.T) {
	db, path := openTestDB(t)

	if err := db.MarkSeen([]string{"42::DELIVERED"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	seen, err := reopened.Seen("42::DELIVERED")
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("seen set must survive a restart")
	}
}

func TestClearSeen(t *testing.T) {
	db, _ := openTestDB(t)

	if err := db.MarkSeen([]string{"1::PENDING"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ClearSeen(); err != nil {
		t.Fatal(err)
	}

	set, err := db.SeenSet()
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 0 {
		t.Fatalf("set=%v", set)
	}
}

func TestSession(t *testing.T) {
	db, _ := openTestDB(t)

	value, err := db.GetSession(SessionRole)
	if err != nil {
		t.Fatal(err)
	}
	if value != nil {
		t.Fatal("unset key must return nil")
	}

	if err := db.SetSession(SessionRole, "HEAD_DRIVER"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSession(SessionRole, "DRIVER"); err != nil {
		t.Fatal(err)
	}

	value, err = db.GetSession(SessionRole)
	if err != nil {
		t.Fatal(err)
	}
	if value == nil || *value != "DRIVER" {
		t.Fatalf("value=%v", value)
	}

	if err := db.SetSession(SessionToken, "jwt-token"); err != nil {
		t.Fatal(err)
	}
	token, err := db.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != "jwt-token" {
		t.Fatalf("token=%s", token)
	}

	if err := db.DeleteSession(SessionToken); err != nil {
		t.Fatal(err)
	}
	token, err = db.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Fatalf("token=%s after delete", token)
	}
}
