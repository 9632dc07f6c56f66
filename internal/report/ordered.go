package report

// OrderedMap is a map that iterates in first-insertion order. Grouping in this
// package goes through it so that ties resolve to the key seen first.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. An existing key keeps its original position.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Update replaces the value for key with fn(current), inserting fn(zero) when absent.
func (m *OrderedMap[K, V]) Update(key K, fn func(V) V) {
	current := m.values[key]
	m.Set(key, fn(current))
}

func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

func (m *OrderedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap[K, V]) Each(fn func(key K, value V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
