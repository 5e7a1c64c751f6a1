package cache

import (
	"context"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func testResult(code string) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		RiskCode:        code,
		RiskDescription: "Test risk",
		Impact:          4,
		Urgency:         3,
		Frequency:       2,
		Controllability: 2,
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := c.Put(ctx, "fp-1", testResult("ER-01")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := c.Get(ctx, "fp-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected hit, got miss")
		}
		if got.RiskCode != "ER-01" {
			t.Errorf("expected ER-01, got %s", got.RiskCode)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		got, err := c.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for cache miss, got: %v", got)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		_ = c.Put(ctx, "fp-copy", testResult("PR-02"))

		got, _ := c.Get(ctx, "fp-copy")
		got.RiskCode = "mutated"

		again, _ := c.Get(ctx, "fp-copy")
		if again.RiskCode != "PR-02" {
			t.Errorf("cached entry was mutated through the returned pointer")
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		_ = c.Put(ctx, "fp-2", testResult("ER-02"))

		if err := c.Invalidate(ctx, "fp-2"); err != nil {
			t.Fatalf("Invalidate failed: %v", err)
		}

		got, _ := c.Get(ctx, "fp-2")
		if got != nil {
			t.Error("expected nil after invalidate")
		}

		// Absent fingerprint is not an error.
		if err := c.Invalidate(ctx, "fp-2"); err != nil {
			t.Errorf("Invalidate of absent entry failed: %v", err)
		}
	})

	t.Run("ClearAndSize", func(t *testing.T) {
		fresh := NewMemoryCache(0)
		_ = fresh.Put(ctx, "a", testResult("ER-01"))
		_ = fresh.Put(ctx, "b", testResult("ER-02"))

		size, _ := fresh.Size(ctx)
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}

		if err := fresh.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		size, _ = fresh.Size(ctx)
		if size != 0 {
			t.Errorf("expected size 0 after clear, got %d", size)
		}
	})

	t.Run("UnboundedByDefault", func(t *testing.T) {
		fresh := NewMemoryCache(0)
		for i := 0; i < 5000; i++ {
			_ = fresh.Put(ctx, Fingerprint(string(rune(i))+"-complaint", nil), testResult("ER-01"))
		}
		size, _ := fresh.Size(ctx)
		if size != 5000 {
			t.Errorf("expected 5000 entries without eviction, got %d", size)
		}
	})

	t.Run("BoundedLRUEviction", func(t *testing.T) {
		small := NewMemoryCache(3)

		_ = small.Put(ctx, "a", testResult("1"))
		_ = small.Put(ctx, "b", testResult("2"))
		_ = small.Put(ctx, "c", testResult("3"))

		// Access 'a' to make it recently used.
		_, _ = small.Get(ctx, "a")

		// Adding 'd' should evict 'b' (least recently used).
		_ = small.Put(ctx, "d", testResult("4"))

		if got, _ := small.Get(ctx, "b"); got != nil {
			t.Error("expected 'b' to be evicted")
		}
		if got, _ := small.Get(ctx, "a"); got == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		fresh := NewMemoryCache(10)
		_ = fresh.Put(ctx, "k", testResult("ER-01"))

		if err := fresh.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		got, _ := fresh.Get(ctx, "k")
		if got != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestFingerprint(t *testing.T) {
	table := []domain.RiskTableEntry{
		{Code: "ER-01", ImpactHint: 4, Description: "Market Competition"},
		{Code: "PR-02", ImpactHint: 3, Description: "Defective Product"},
	}

	t.Run("Identity", func(t *testing.T) {
		fp1 := Fingerprint("The app keeps crashing", table)
		fp2 := Fingerprint("The app keeps crashing", table)
		if fp1 != fp2 {
			t.Errorf("identical inputs produced different fingerprints: %s vs %s", fp1, fp2)
		}
	})

	t.Run("SensitiveToComplaintText", func(t *testing.T) {
		fp1 := Fingerprint("The app keeps crashing", table)
		fp2 := Fingerprint("The app keeps crashing!", table)
		if fp1 == fp2 {
			t.Error("different complaints produced the same fingerprint")
		}
	})

	t.Run("SensitiveToEveryTableField", func(t *testing.T) {
		base := Fingerprint("complaint", table)

		codeChanged := []domain.RiskTableEntry{
			{Code: "ER-02", ImpactHint: 4, Description: "Market Competition"},
			table[1],
		}
		hintChanged := []domain.RiskTableEntry{
			{Code: "ER-01", ImpactHint: 5, Description: "Market Competition"},
			table[1],
		}
		descChanged := []domain.RiskTableEntry{
			{Code: "ER-01", ImpactHint: 4, Description: "Competitor Pressure"},
			table[1],
		}

		for name, changed := range map[string][]domain.RiskTableEntry{
			"code":        codeChanged,
			"impact hint": hintChanged,
			"description": descChanged,
		} {
			if Fingerprint("complaint", changed) == base {
				t.Errorf("changing %s did not change the fingerprint", name)
			}
		}
	})

	t.Run("SensitiveToRowOrder", func(t *testing.T) {
		reversed := []domain.RiskTableEntry{table[1], table[0]}
		if Fingerprint("complaint", table) == Fingerprint("complaint", reversed) {
			t.Error("reordering the risk table did not change the fingerprint")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.Close()

		if _, ok := c.(*MemoryCache); !ok {
			t.Error("expected MemoryCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
