package storage

// Overlay buffers writes on top of a backing Database so a whole operation can
// be committed or discarded as one unit. Reads see buffered writes first, then
// fall through to the backing store. An Overlay is used by exactly one
// operation at a time; the node serializes access.
type Overlay struct {
	backend Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewOverlay wraps backend with an empty write buffer.
func NewOverlay(backend Database) *Overlay {
	return &Overlay{
		backend: backend,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return nil, ErrNotFound
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.backend.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return false, nil
	}
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	return o.backend.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Close discards the buffer without touching the backend.
func (o *Overlay) Close() error {
	o.Discard()
	return nil
}

// Commit flushes buffered writes and deletes to the backing store. A failed
// flush leaves the backend partially updated only if the backend itself is
// non-atomic; LevelDB callers that need stronger guarantees should sit the
// overlay on top of a MemDB checkpointed elsewhere.
func (o *Overlay) Commit() error {
	for k := range o.deletes {
		if err := o.backend.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for k, v := range o.writes {
		if err := o.backend.Put([]byte(k), v); err != nil {
			return err
		}
	}
	o.Discard()
	return nil
}

// Discard drops all buffered mutations.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}
