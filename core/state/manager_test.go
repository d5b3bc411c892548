package state

import (
	"testing"

	"refchain/storage"
)

func TestSnapshotRevertRestoresPriorValues(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("alpha"), uint64(1)); err != nil {
		t.Fatalf("put alpha: %v", err)
	}
	snap := mgr.Snapshot()
	if err := mgr.KVPut([]byte("alpha"), uint64(2)); err != nil {
		t.Fatalf("overwrite alpha: %v", err)
	}
	if err := mgr.KVPut([]byte("beta"), uint64(3)); err != nil {
		t.Fatalf("put beta: %v", err)
	}
	mgr.RevertToSnapshot(snap)

	var alpha uint64
	if ok, err := mgr.KVGet([]byte("alpha"), &alpha); err != nil || !ok {
		t.Fatalf("get alpha: ok=%v err=%v", ok, err)
	}
	if alpha != 1 {
		t.Fatalf("expected alpha=1 after revert, got %d", alpha)
	}
	if ok, err := mgr.KVGet([]byte("beta"), nil); err != nil || ok {
		t.Fatalf("beta should be gone after revert: ok=%v err=%v", ok, err)
	}
}

func TestCommitPersistsAndDiscardDrops(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("kept"), uint64(7)); err != nil {
		t.Fatalf("put kept: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Pending() != 0 {
		t.Fatalf("expected no pending writes after commit, got %d", mgr.Pending())
	}
	if err := mgr.KVPut([]byte("dropped"), uint64(9)); err != nil {
		t.Fatalf("put dropped: %v", err)
	}
	mgr.Discard()

	fresh := NewManager(db)
	var kept uint64
	if ok, err := fresh.KVGet([]byte("kept"), &kept); err != nil || !ok || kept != 7 {
		t.Fatalf("kept value not persisted: ok=%v err=%v value=%d", ok, err, kept)
	}
	if ok, err := fresh.KVGet([]byte("dropped"), nil); err != nil || ok {
		t.Fatalf("discarded value leaked: ok=%v err=%v", ok, err)
	}
}

func TestKVDeleteCommitsRemoval(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("gone"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mgr.KVDelete([]byte("gone")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("gone"), nil); ok {
		t.Fatalf("pending delete not visible")
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit delete: %v", err)
	}
	if ok, _ := NewManager(db).KVGet([]byte("gone"), nil); ok {
		t.Fatalf("delete not persisted")
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("list")
	for _, v := range [][]byte{{0x01}, {0x02}, {0x01}} {
		if err := mgr.KVAppend(key, v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(list))
	}

	var empty [][]byte
	if err := mgr.KVGetList([]byte("missing"), &empty); err != nil {
		t.Fatalf("get missing list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", empty)
	}
}
