package resource

import (
	"testing"
)

func TestPool_ProduceRespectsCap(t *testing.T) {
	pool := NewPool(0)
	if pool.Cap() != DefaultCap {
		t.Fatalf("Expected default cap %d, got %d", DefaultCap, pool.Cap())
	}

	pool.Set("Water", 10)
	if pool.Produce("Water", false) {
		t.Error("Expected produce at cap to be a no-op")
	}
	if pool.Value("Water") != 10 {
		t.Errorf("Expected Water to stay at 10, got %d", pool.Value("Water"))
	}

	pool.SetOverride("Water", true)
	if !pool.Produce("Water", false) {
		t.Error("Expected non-strict produce with override to exceed cap")
	}
	if pool.Value("Water") != 11 {
		t.Errorf("Expected Water 11, got %d", pool.Value("Water"))
	}
}

func TestPool_StrictProduceNeverExceedsCap(t *testing.T) {
	pool := NewPool(3)
	pool.SetOverride("Fire", true)

	for i := 0; i < 10; i++ {
		pool.Produce("Fire", true)
	}
	if pool.Value("Fire") != 3 {
		t.Errorf("Expected strict produce to stop at cap 3, got %d", pool.Value("Fire"))
	}
}

func TestPool_SpendClampsAtZero(t *testing.T) {
	pool := NewPool(10)
	pool.Set("Water", 2)
	pool.Set("Fire", 1)

	taken := pool.Spend(Amounts{"Water": 5, "Fire": 1, "Dark": 2, "Earth": -1})
	if taken["Water"] != 2 || taken["Fire"] != 1 {
		t.Errorf("Expected to take Water 2 and Fire 1, got %v", taken)
	}
	if _, ok := taken["Dark"]; ok {
		t.Errorf("Expected nothing taken from empty Dark, got %v", taken)
	}
	if pool.Total() != 0 {
		t.Errorf("Expected empty pool, got %v", pool.Values())
	}
}

func TestPool_RefundCaps(t *testing.T) {
	pool := NewPool(5)
	pool.Set("Light", 4)

	returned := pool.Refund(Amounts{"Light": 3, "Dark": 2})
	if pool.Value("Light") != 5 {
		t.Errorf("Expected Light capped at 5, got %d", pool.Value("Light"))
	}
	if returned["Light"] != 1 || returned["Dark"] != 2 {
		t.Errorf("Unexpected refund result %v", returned)
	}

	pool.SetOverride("Light", true)
	pool.Refund(Amounts{"Light": 2})
	if pool.Value("Light") != 7 {
		t.Errorf("Expected override refund to exceed cap, got %d", pool.Value("Light"))
	}
}

func TestPool_SetClamps(t *testing.T) {
	pool := NewPool(10)
	if v := pool.Set("Earth", 42); v != 10 {
		t.Errorf("Expected Set to clamp at cap, got %d", v)
	}
	if v := pool.Set("Earth", -4); v != 0 {
		t.Errorf("Expected Set to clamp at zero, got %d", v)
	}
	if len(pool.Values()) != 0 {
		t.Errorf("Expected zero entries to be dropped, got %v", pool.Values())
	}
}

func TestPool_CopyAndReset(t *testing.T) {
	pool := NewPool(10)
	pool.Set("Wind", 3)
	pool.SetOverride("Wind", true)

	cp := pool.Copy()
	pool.Reset()

	if cp.Value("Wind") != 3 || !cp.Override("Wind") {
		t.Error("Expected copy to be independent of the original")
	}
	if pool.Total() != 0 || pool.Override("Wind") {
		t.Error("Expected reset to clear values and overrides")
	}
}
