// Package zeroize provides a best-effort memory-wiping byte wrapper,
// the Go analogue of the original daemon's Zeroizing<String>.
package zeroize

// Bytes is a byte slice that should be wiped once no longer needed.
// Go's garbage collector gives no hard guarantee the backing array is
// gone, but zeroing on Close denies a casual memory scan the value.
type Bytes struct {
	b []byte
}

func New(b []byte) *Bytes { return &Bytes{b: b} }

func (z *Bytes) Value() []byte { return z.b }

// Close overwrites the backing array with zeros.
func (z *Bytes) Close() {
	for i := range z.b {
		z.b[i] = 0
	}
}
