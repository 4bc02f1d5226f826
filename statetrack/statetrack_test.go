package statetrack

import "testing"

func tuple() FiveTuple {
	return FiveTuple{
		SrcIP:    0x09090909,
		DstIP:    0x01010101,
		SrcPort:  55,
		DstPort:  80,
		Protocol: 6,
	}
}

// TestStatefulPinningUnderReassignment is spec §8 scenario 4: a flow pinned
// to DIP A must keep resolving to A even after the ring reassigns its
// bucket to DIP B, as long as the pin has not gone idle.
func TestStatefulPinningUnderReassignment(t *testing.T) {
	st := New(1024, IdleTimeout)
	key := tuple()

	if _, ok := st.LookupBestEffort(key); ok {
		t.Fatal("expected miss before any packet of this flow has been seen")
	}

	s := st.Allocate()
	s.Key = key
	s.DIP = 0xA0A0A0A0 // DIP A
	st.InsertBestEffort(1000, s)

	// Controller rebuckets T's bucket to DIP B; StateTrack is untouched by
	// that — only Mux's dispatch path consults it, and only for flows it
	// has not already pinned.
	got, ok := st.LookupBestEffort(key)
	if !ok {
		t.Fatal("expected hit for the pinned flow")
	}
	if got.DIP != 0xA0A0A0A0 {
		t.Fatalf("pinned DIP = %#x, want DIP A", got.DIP)
	}

	// A later packet of the same flow, still within T_idle, refreshes the
	// pin but must not change which DIP it resolves to.
	st.Refresh(1001, got)
	got2, ok := st.LookupBestEffort(key)
	if !ok {
		t.Fatal("expected hit after refresh")
	}
	if got2.DIP != 0xA0A0A0A0 {
		t.Fatalf("DIP changed after refresh: got %#x, want DIP A", got2.DIP)
	}
}

func TestLookupBestEffortMissForUnknownFlow(t *testing.T) {
	st := New(16, IdleTimeout)
	if _, ok := st.LookupBestEffort(tuple()); ok {
		t.Fatal("expected miss on an empty table")
	}
}

func TestInsertBestEffortEvictsUnderCapacityPressure(t *testing.T) {
	st := New(2, IdleTimeout)

	for i := 0; i < 3; i++ {
		key := tuple()
		key.SrcPort = uint16(1000 + i)
		s := st.Allocate()
		s.Key = key
		s.DIP = uint32(i)
		st.InsertBestEffort(int64(i), s)
	}

	if got := st.Len(); got > 2 {
		t.Fatalf("Len() = %d, want <= 2 (capacity)", got)
	}

	// The oldest of the three (port 1000) should have been evicted in
	// favor of the two most recently inserted.
	oldest := tuple()
	oldest.SrcPort = 1000
	if _, ok := st.LookupBestEffort(oldest); ok {
		t.Fatal("expected the least-recently-used flow to have been evicted")
	}
}
