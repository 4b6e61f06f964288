package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("openai", "instruction", "schema", "segment text")
	b := Key("openai", "instruction", "schema", "segment text")
	if a != b {
		t.Errorf("identical inputs must hash to the same key: %s vs %s", a, b)
	}

	c := Key("openai", "instruction", "schema", "different text")
	if a == c {
		t.Error("different inputs must not collide")
	}
}

func TestKey_PartBoundaries(t *testing.T) {
	// Concatenation without a separator would make these collide.
	a := Key("ab", "c")
	b := Key("a", "bc")
	if a == b {
		t.Error("part boundaries must affect the key")
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	key := Key("openai", "task", "schema", "text")
	if err := c.Set(key, []byte("value"), time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	val, found := c.Get(key)
	if !found || !bytes.Equal(val, []byte("value")) {
		t.Fatalf("Expected cached value, got %q found=%v", val, found)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, found := c.Get(key); found {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCache_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()

	first := NewDiskCache(dir, time.Hour)
	key := Key("openai", "task", "schema", "text")
	if err := first.Set(key, []byte("persisted"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	second := NewDiskCache(dir, time.Hour)
	val, found := second.Get(key)
	if !found || string(val) != "persisted" {
		t.Fatalf("Expected value from fresh instance, got %q found=%v", val, found)
	}
}

func TestDiskCache_ExpiredEntryMisses(t *testing.T) {
	dir := t.TempDir()

	c := NewDiskCache(dir, time.Hour)
	key := Key("k")
	if err := c.Set(key, []byte("stale"), -time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, found := c.Get(key); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_DiskHitPromotedToMemory(t *testing.T) {
	dir := t.TempDir()

	seed := NewDiskCache(dir, time.Hour)
	key := Key("k")
	if err := seed.Set(key, []byte("warm"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	val, found := layered.Get(key)
	if !found || string(val) != "warm" {
		t.Fatalf("Expected disk hit through layered cache, got %q found=%v", val, found)
	}

	// Remove the disk entry; the promoted copy must still serve reads.
	if err := seed.Delete(key); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, found := layered.Get(key); !found {
		t.Error("Expected promoted memory entry to survive disk deletion")
	}
}
