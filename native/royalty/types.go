package royalty

import "fmt"

// MaxBps caps every royalty fraction at 10% of the sale price.
const MaxBps uint32 = 1_000

// Record is a royalty override: who receives the creator cut and what
// basis-point fraction of the sale price they are owed. A zero recipient and
// a zero fraction each mean "no override at this layer".
type Record struct {
	Recipient [20]byte
	Bps       uint32
}

// Empty reports whether the record carries no override. A record missing
// either the recipient or the fraction is transparent, so the cascade falls
// through to the next layer instead of stopping on it.
func (r *Record) Empty() bool {
	return r == nil || r.Recipient == ([20]byte{}) || r.Bps == 0
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// SanitizeRecord validates the cap and recipient rules shared by every setter:
// the fraction never exceeds MaxBps, and a non-zero fraction always names a
// recipient.
func SanitizeRecord(r *Record) (*Record, error) {
	if r == nil {
		return nil, fmt.Errorf("royalty: nil record")
	}
	if r.Bps > MaxBps {
		return nil, fmt.Errorf("royalty: bps %d exceeds cap %d", r.Bps, MaxBps)
	}
	if r.Bps > 0 && r.Recipient == ([20]byte{}) {
		return nil, fmt.Errorf("royalty: non-zero fraction requires a recipient")
	}
	return r.Clone(), nil
}

// Params carries the owner identity authorized to manage global defaults.
type Params struct {
	Owner [20]byte
}

// Clone returns a copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
