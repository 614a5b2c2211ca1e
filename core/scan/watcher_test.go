package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInboxWatcherIngestsDroppedImages(t *testing.T) {
	inbox := t.TempDir()
	session := newTestSession(t, 1, &stubExtractor{})

	watcher, err := NewInboxWatcher(inbox, session)
	if err != nil {
		t.Fatalf("NewInboxWatcher: %v", err)
	}
	defer watcher.Stop()

	path := filepath.Join(inbox, "dropped_album.jpg")
	if err := os.WriteFile(path, []byte("fake jpeg"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitForCondition(t, 5*time.Second, "dropped image to be ingested", func() bool {
		return len(session.Items()) == 1
	})

	item := session.Items()[0]
	if item.FileName != "dropped_album.jpg" {
		t.Errorf("file name = %q", item.FileName)
	}
	if item.Fields.Title != "dropped album" {
		t.Errorf("title = %q, want %q", item.Fields.Title, "dropped album")
	}

	waitForCondition(t, 5*time.Second, "source file to be consumed", func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})
}

func TestInboxWatcherIgnoresNonImages(t *testing.T) {
	inbox := t.TempDir()
	session := newTestSession(t, 1, &stubExtractor{})

	watcher, err := NewInboxWatcher(inbox, session)
	if err != nil {
		t.Fatalf("NewInboxWatcher: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	time.Sleep(time.Second)
	if n := len(session.Items()); n != 0 {
		t.Errorf("non-image ingested, %d items", n)
	}
}
