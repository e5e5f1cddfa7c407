package device

import "fmt"

// Registry holds every configured device keyed by id.
//
// Registry is not safe for concurrent use. It is owned by exactly one
// goroutine (the controller's Owner) and every read or write goes through
// that goroutine.
type Registry struct {
	order   []string
	records map[string]Record
	pins    map[int]string
}

// NewRegistry builds a registry from the configured devices.
// Device order is preserved for snapshots.
//
// Returns ErrDeviceExists or ErrPinInUse on duplicates, or ErrInvalidDevice
// when a record fails validation.
func NewRegistry(records []Record) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(records)),
		records: make(map[string]Record, len(records)),
		pins:    make(map[int]string, len(records)),
	}

	for _, rec := range records {
		if rec.State == "" {
			rec.State = StateOff
		}
		if err := ValidateRecord(rec); err != nil {
			return nil, err
		}
		if _, exists := r.records[rec.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDeviceExists, rec.ID)
		}
		if other, taken := r.pins[rec.Pin]; taken {
			return nil, fmt.Errorf("%w: pin %d claimed by %s and %s", ErrPinInUse, rec.Pin, other, rec.ID)
		}
		r.order = append(r.order, rec.ID)
		r.records[rec.ID] = rec
		r.pins[rec.Pin] = rec.ID
	}

	return r, nil
}

// Get returns the record for id, or ErrDeviceNotFound.
func (r *Registry) Get(id string) (Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return rec, nil
}

// Put replaces an existing record.
//
// The device must already be registered and keep its pin; only the state
// and display name may change.
func (r *Registry) Put(rec Record) error {
	cur, ok := r.records[rec.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, rec.ID)
	}
	if cur.Pin != rec.Pin {
		return fmt.Errorf("%w: %s is on pin %d", ErrPinImmutable, rec.ID, cur.Pin)
	}
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	r.records[rec.ID] = rec
	return nil
}

// Snapshot returns a copy of every record in configuration order.
// Mutating the returned slice has no effect on the registry.
func (r *Registry) Snapshot() []Record {
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

// Pins returns the relay pin of every device in configuration order.
func (r *Registry) Pins() []int {
	out := make([]int, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Pin)
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.order)
}
