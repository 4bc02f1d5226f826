package config

import "testing"

func TestValidateRequiresVIP(t *testing.T) {
	o := Options{RingSize: 1, Shards: 1}
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for missing VIP")
	}
}

func TestValidateRingSizeBounds(t *testing.T) {
	o := Options{VIP: "1.1.1.1", Shards: 1, RingSize: MaxRingSize + 1}
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for out-of-bounds ring size")
	}
	o.RingSize = -1
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for negative ring size")
	}
}

func TestValidateStatefulRequiresMaxStates(t *testing.T) {
	o := Options{VIP: "1.1.1.1", Shards: 1, RingSize: 1, Stateful: true}
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for stateful with MaxStates=0")
	}
	o.MaxStates = 1024
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatesPerShard(t *testing.T) {
	o := Options{MaxStates: 4096, Shards: 4}
	if got := o.StatesPerShard(); got != 1024 {
		t.Fatalf("StatesPerShard() = %d, want 1024", got)
	}
}
