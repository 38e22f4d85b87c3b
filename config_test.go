package lanterndb

import "testing"

func TestDefaultConfigIsAlreadyComplete(t *testing.T) {
	d := DefaultConfig()
	if got := d.withDefaults(); got.TargetTableSize != d.TargetTableSize ||
		got.Level0FileLimit != d.Level0FileLimit ||
		got.WriteBatchWait != d.WriteBatchWait {
		t.Fatalf("withDefaults changed an already-complete config: %+v", got)
	}
}

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	c := Config{TargetTableSize: 1 << 20}
	got := c.withDefaults()

	if got.TargetTableSize != 1<<20 {
		t.Fatalf("TargetTableSize = %d, want explicit value preserved", got.TargetTableSize)
	}
	d := DefaultConfig()
	if got.Level0FileLimit != d.Level0FileLimit {
		t.Fatalf("Level0FileLimit = %d, want default %d", got.Level0FileLimit, d.Level0FileLimit)
	}
	if got.ManifestFileName != d.ManifestFileName {
		t.Fatalf("ManifestFileName = %q, want default %q", got.ManifestFileName, d.ManifestFileName)
	}
	if got.Logger == nil {
		t.Fatal("Logger = nil, want discard logger default")
	}
	if got.Stats == nil {
		t.Fatal("Stats = nil, want a fresh Stats")
	}
	if got.FS == nil {
		t.Fatal("FS = nil, want the default filesystem")
	}
	if got.MaxValueBytes != d.MaxValueBytes {
		t.Fatalf("MaxValueBytes = %d, want default %d", got.MaxValueBytes, d.MaxValueBytes)
	}
}

func TestWithDefaultsReusesInjectedStats(t *testing.T) {
	s := NewStats()
	c := Config{Stats: s}
	got := c.withDefaults()
	if got.Stats != s {
		t.Fatal("withDefaults replaced an injected Stats instead of reusing it")
	}
}
