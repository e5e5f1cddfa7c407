package device

import (
	"errors"
	"testing"
)

// testRecords returns the standard fogger pair, both off.
func testRecords() []Record {
	return []Record{
		{ID: "FOGGER_FAN", Name: "Fogger Fan", State: StateOff, Pin: 27},
		{ID: "FOGGER", Name: "Fogger", State: StateOff, Pin: 17},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(testRecords())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantErr error
	}{
		{
			name:    "valid pair",
			records: testRecords(),
		},
		{
			name:    "empty state defaults to off",
			records: []Record{{ID: "FOGGER", Name: "Fogger", Pin: 17}},
		},
		{
			name: "duplicate id",
			records: []Record{
				{ID: "FOGGER", Name: "Fogger", Pin: 17},
				{ID: "FOGGER", Name: "Fogger 2", Pin: 18},
			},
			wantErr: ErrDeviceExists,
		},
		{
			name: "duplicate pin",
			records: []Record{
				{ID: "FOGGER", Name: "Fogger", Pin: 17},
				{ID: "FOGGER_FAN", Name: "Fogger Fan", Pin: 17},
			},
			wantErr: ErrPinInUse,
		},
		{
			name:    "missing name",
			records: []Record{{ID: "FOGGER", Pin: 17}},
			wantErr: ErrInvalidDevice,
		},
		{
			name:    "bad state",
			records: []Record{{ID: "FOGGER", Name: "Fogger", Pin: 17, State: "dim"}},
			wantErr: ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.records)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewRegistry() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRegistry() error = %v", err)
			}
			if r.Len() != len(tt.records) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.records))
			}
			for _, rec := range r.Snapshot() {
				if rec.State != StateOff {
					t.Errorf("%s initial state = %q, want off", rec.ID, rec.State)
				}
			}
		})
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("NOPE")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get(NOPE) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_Put(t *testing.T) {
	r := newTestRegistry(t)

	rec, err := r.Get("FOGGER")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := r.Put(rec.Enabled()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _ := r.Get("FOGGER")
	if got.State != StateOn {
		t.Errorf("state after Put = %q, want on", got.State)
	}

	// Other device untouched
	fan, _ := r.Get("FOGGER_FAN")
	if fan.State != StateOff {
		t.Errorf("fan state = %q, want off", fan.State)
	}
}

func TestRegistry_PutRejects(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Put(Record{ID: "NOPE", Name: "Nope", Pin: 5, State: StateOn}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Put(unknown) error = %v, want ErrDeviceNotFound", err)
	}

	rec, _ := r.Get("FOGGER")
	rec.Pin = 22
	if err := r.Put(rec); !errors.Is(err, ErrPinImmutable) {
		t.Errorf("Put(moved pin) error = %v, want ErrPinImmutable", err)
	}

	got, _ := r.Get("FOGGER")
	if got.Pin != 17 {
		t.Errorf("pin after rejected Put = %d, want 17", got.Pin)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := newTestRegistry(t)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
	}
	if snap[0].ID != "FOGGER_FAN" || snap[1].ID != "FOGGER" {
		t.Errorf("snapshot order = [%s %s], want configuration order", snap[0].ID, snap[1].ID)
	}

	snap[0].State = StateOn
	snap[0].Name = "mutated"

	fan, _ := r.Get("FOGGER_FAN")
	if fan.State != StateOff || fan.Name != "Fogger Fan" {
		t.Errorf("registry changed through snapshot: %+v", fan)
	}
}

func TestRegistry_Pins(t *testing.T) {
	r := newTestRegistry(t)

	pins := r.Pins()
	if len(pins) != 2 || pins[0] != 27 || pins[1] != 17 {
		t.Errorf("Pins() = %v, want [27 17]", pins)
	}
}
