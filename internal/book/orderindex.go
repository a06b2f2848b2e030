package book

// orderIndex is a separate-chaining hash table from order_id strings
// to borrowed *priceLevel references, ported from
// original_source/HashTable.c: djb2 hashing, 0.75 load-factor resize.
type orderIndex struct {
	buckets []*orderIndexEntry
	size    int
}

type orderIndexEntry struct {
	key   string
	value *priceLevel
	next  *orderIndexEntry
}

const orderIndexInitialCapacity = 1024

func newOrderIndex() *orderIndex {
	return &orderIndex{buckets: make([]*orderIndexEntry, orderIndexInitialCapacity)}
}

func djb2(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}

func (idx *orderIndex) Len() int { return idx.size }

func (idx *orderIndex) add(key string, value *priceLevel) {
	if float64(idx.size+1)/float64(len(idx.buckets)) > 0.75 {
		idx.resize()
	}

	h := djb2(key) % uint64(len(idx.buckets))
	for e := idx.buckets[h]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return
		}
	}

	idx.buckets[h] = &orderIndexEntry{key: key, value: value, next: idx.buckets[h]}
	idx.size++
}

func (idx *orderIndex) get(key string) (*priceLevel, bool) {
	h := djb2(key) % uint64(len(idx.buckets))
	for e := idx.buckets[h]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

func (idx *orderIndex) remove(key string) bool {
	h := djb2(key) % uint64(len(idx.buckets))
	var prev *orderIndexEntry
	for e := idx.buckets[h]; e != nil; e = e.next {
		if e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				idx.buckets[h] = e.next
			}
			idx.size--
			return true
		}
		prev = e
	}
	return false
}

func (idx *orderIndex) resize() {
	newBuckets := make([]*orderIndexEntry, len(idx.buckets)*2)
	for _, head := range idx.buckets {
		for e := head; e != nil; {
			next := e.next
			h := djb2(e.key) % uint64(len(newBuckets))
			e.next = newBuckets[h]
			newBuckets[h] = e
			e = next
		}
	}
	idx.buckets = newBuckets
}
