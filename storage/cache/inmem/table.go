package inmemcache

// table is one normalized mapping plus its ordered id-list.
// Rows are never mutated in place: a write stores a new pointer, so a
// shallow clone of the table is a consistent snapshot.
type table[T any] struct {
	ids  []string
	rows map[string]*T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) clone() *table[T] {
	rows := make(map[string]*T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	return &table[T]{ids: append([]string(nil), t.ids...), rows: rows}
}

func (t *table[T]) get(id string) (*T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// put stores row under id, registering id in the id-list if new.
func (t *table[T]) put(id string, row *T) {
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = row
}

// del drops id from the mapping and every occurrence from the id-list.
func (t *table[T]) del(id string) bool {
	_, ok := t.rows[id]
	delete(t.rows, id)

	ids := t.ids[:0:0]
	for _, v := range t.ids {
		if v != id {
			ids = append(ids, v)
		} else {
			ok = true
		}
	}
	t.ids = ids
	return ok
}

func (t *table[T]) list() []*T {
	rows := make([]*T, 0, len(t.ids))
	for _, id := range t.ids {
		if row, ok := t.rows[id]; ok {
			rows = append(rows, row)
		}
	}
	return rows
}
