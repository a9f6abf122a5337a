// Licensed under the MIT License. See LICENSE file in the project root for details.

package registry

// Option configures a registry at construction time.
type Option[H comparable] func(*manager[H])

// WithEvictionHandler registers a code-cache reclaimer callback. During a
// sweep the callback fires exactly once per evicted handle, before Advance
// returns. The same handles are also returned by Advance; both surfaces
// report precisely the same set.
func WithEvictionHandler[H comparable](fn func(H)) Option[H] {
	return func(m *manager[H]) {
		m.onEvict = fn
	}
}

// WithCapacityHint presizes the retention map for drivers that know roughly
// how many loops stay hot at once.
func WithCapacityHint[H comparable](n int) Option[H] {
	return func(m *manager[H]) {
		if n > 0 {
			m.touched = make(map[H]uint64, n)
		}
	}
}
