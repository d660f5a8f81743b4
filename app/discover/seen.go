package discover

const DefaultSeenLimit = 30

type SeenSet map[int64]struct{}

func NewSeenSet(ids []int64) SeenSet {
	set := make(SeenSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s SeenSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// SeenBuffer is a bounded FIFO of recently shown item ids.
type SeenBuffer struct {
	limit int
	ids   []int64
}

func NewSeenBuffer(limit int, ids ...int64) *SeenBuffer {
	if limit <= 0 {
		limit = DefaultSeenLimit
	}
	b := &SeenBuffer{limit: limit, ids: make([]int64, 0, limit)}
	for _, id := range ids {
		b.Push(id)
	}
	return b
}

// Push appends id and evicts the oldest entries beyond the limit.
func (b *SeenBuffer) Push(id int64) {
	b.ids = append(b.ids, id)
	if over := len(b.ids) - b.limit; over > 0 {
		b.ids = append(b.ids[:0], b.ids[over:]...)
	}
}

// IDs returns a snapshot, oldest first.
func (b *SeenBuffer) IDs() []int64 {
	out := make([]int64, len(b.ids))
	copy(out, b.ids)
	return out
}

func (b *SeenBuffer) Len() int {
	return len(b.ids)
}

func (b *SeenBuffer) Limit() int {
	return b.limit
}
