package wavefront

// VertexKey identifies one output vertex by its zero-based position,
// texcoord and normal indices. It is comparable and used directly as a map key.
type VertexKey struct {
	Position int
	TexCoord int
	Normal   int
}

// dedupTable assigns dense ids to vertex keys in insertion order.
type dedupTable struct {
	ids  map[VertexKey]int
	keys []VertexKey
}

func newDedupTable() *dedupTable {
	return &dedupTable{ids: make(map[VertexKey]int)}
}

// id returns the id for k, inserting it with id == Len() if unseen.
func (d *dedupTable) id(k VertexKey) int {
	if id, ok := d.ids[k]; ok {
		return id
	}
	id := len(d.keys)
	d.ids[k] = id
	d.keys = append(d.keys, k)
	return id
}

func (d *dedupTable) Len() int {
	return len(d.keys)
}

func (d *dedupTable) reset() {
	clear(d.ids)
	d.keys = d.keys[:0]
}

// resolveIndex turns a 1-based or negative (relative to count) source index
// into a zero-based index.
func resolveIndex(i, count int) int {
	if i < 0 {
		return count + i
	}
	return i - 1
}
