package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/shipyard/pkg/upload"
)

func saveAndClaim(t *testing.T, store upload.Store) {
	t.Helper()
	ctx := context.Background()

	content := []byte("hello world")
	tempID, err := store.Save(ctx, "test.txt", "text/plain", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if tempID == "" {
		t.Fatal("expected non-empty temp ID")
	}

	file, err := store.Claim(ctx, tempID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if file.Filename != "test.txt" {
		t.Errorf("Filename = %q, want test.txt", file.Filename)
	}
	if file.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", file.ContentType)
	}
	if file.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", file.Size, len(content))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("content = %q, want %q", data, content)
	}
	if err := file.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := store.Claim(ctx, tempID); !errors.Is(err, upload.ErrNotFound) {
		t.Errorf("second Claim error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SaveAndClaim(t *testing.T) {
	store := upload.NewMemoryStore(0)
	saveAndClaim(t, store)
	if store.Len() != 0 {
		t.Errorf("Len = %d after claim, want 0", store.Len())
	}
}

func TestMemoryStore_SizeLimit(t *testing.T) {
	store := upload.NewMemoryStore(5)
	_, err := store.Save(context.Background(), "x.txt", "text/plain", bytes.NewReader([]byte("123456")))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store := upload.NewMemoryStore(0)
	ctx := context.Background()
	store.Save(ctx, "a", "text/plain", bytes.NewReader([]byte("a")))

	if err := store.Cleanup(ctx, time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("fresh file removed by Cleanup")
	}
	time.Sleep(5 * time.Millisecond)
	store.Cleanup(ctx, time.Millisecond)
	if store.Len() != 0 {
		t.Errorf("Len = %d after expiry, want 0", store.Len())
	}
}

func TestDiskStore_SaveAndClaim(t *testing.T) {
	store, err := upload.NewDiskStore(t.TempDir(), 10*1024*1024)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	saveAndClaim(t, store)
}

func TestDiskStore_ClaimDeletesFileOnClose(t *testing.T) {
	dir := t.TempDir()
	store, _ := upload.NewDiskStore(dir, 0)
	ctx := context.Background()

	tempID, err := store.Save(ctx, "a.bin", "application/octet-stream", bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	file, err := store.Claim(ctx, tempID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if file.Path != filepath.Join(dir, tempID) {
		t.Errorf("Path = %q", file.Path)
	}
	file.Close()

	if _, err := os.Stat(filepath.Join(dir, tempID)); !os.IsNotExist(err) {
		t.Errorf("file still exists after Close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, tempID+".meta")); !os.IsNotExist(err) {
		t.Errorf("meta still exists after Close: %v", err)
	}
}

func TestDiskStore_SizeLimitRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	store, _ := upload.NewDiskStore(dir, 5)

	_, err := store.Save(context.Background(), "x.txt", "text/plain", bytes.NewReader([]byte("123456")))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries after rejected save, want 0", len(entries))
	}
}

func TestDiskStore_ClaimLoadsMetadataFromDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store1, _ := upload.NewDiskStore(dir, 0)
	tempID, err := store1.Save(ctx, "persist.txt", "text/plain", bytes.NewReader([]byte("persist me")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A new instance simulates a restart.
	store2, _ := upload.NewDiskStore(dir, 0)
	file, err := store2.Claim(ctx, tempID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	defer file.Close()
	if file.Filename != "persist.txt" {
		t.Errorf("Filename = %q, want persist.txt", file.Filename)
	}
}

func TestDiskStore_ClaimRejectsTraversalTempID(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0)
	if _, err := store.Claim(context.Background(), "../../etc/passwd"); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDiskStore_CleanupRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	store, _ := upload.NewDiskStore(dir, 0)

	orphan := filepath.Join(dir, "orphan.bin")
	os.WriteFile(orphan, []byte("old"), 0644)
	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(orphan, old, old)
	os.Mkdir(filepath.Join(dir, "keep"), 0755)

	if err := store.Cleanup(context.Background(), time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphan not removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "keep")); err != nil {
		t.Errorf("directory removed: %v", err)
	}
}

func TestTypeAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		ct      string
		want    bool
	}{
		{nil, "anything/at-all", true},
		{[]string{"image/png"}, "image/png", true},
		{[]string{"image/png"}, "IMAGE/PNG; charset=binary", true},
		{[]string{"image/png"}, "image/jpeg", false},
		{[]string{"image/*"}, "image/jpeg", true},
		{[]string{"image/*"}, "text/plain", false},
	}
	for _, tt := range tests {
		if got := upload.TypeAllowed(tt.allowed, tt.ct); got != tt.want {
			t.Errorf("TypeAllowed(%v, %q) = %v, want %v", tt.allowed, tt.ct, got, tt.want)
		}
	}
}

func TestJanitorStopsWithContext(t *testing.T) {
	store := upload.NewMemoryStore(0)
	store.Save(context.Background(), "a", "text/plain", bytes.NewReader([]byte("a")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		upload.Janitor(ctx, store, time.Millisecond, 0, nil)
		close(done)
	}()

	deadline := time.After(time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor did not sweep")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
