package cache

import (
	"testing"
	"time"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

func TestMetadataCache(t *testing.T) {
	c := DefaultMetadataCache()
	meta := domain.NewMetadata("Title", "4:01", "https://i/t.jpg", domain.ParseRef("abc"))

	if _, ok := c.Get("abc"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("abc", meta)
	got, ok := c.Get("abc")
	if !ok || got != meta {
		t.Fatalf("Get() = %v, %v", got, ok)
	}

	c.Set("", meta)
	c.Set("nil", nil)
	if c.ItemCount() != 1 {
		t.Fatalf("ItemCount() = %d, want 1", c.ItemCount())
	}

	c.Delete("abc")
	if _, ok := c.Get("abc"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMetadataCache_Expiry(t *testing.T) {
	c := NewMetadataCache(20*time.Millisecond, time.Minute)
	c.Set("abc", domain.NewMetadata("T", "", "", domain.ParseRef("abc")))

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("abc"); ok {
		t.Fatal("expected entry to expire")
	}
}
