package catalog

// assignmentStrides are the offsets from an author's primary source index.
var assignmentStrides = []int{0, 13, 29, 43, 59}

// HashAuthor is the 32-bit string hash used to spread authors over sources
// (h = h*31 + c with int32 wraparound, over UTF-16 code units).
func HashAuthor(id string) uint32 {
	var h int32
	for _, r := range id {
		if r >= 0x10000 {
			r -= 0x10000
			h = h*31 + int32(0xD800+(r>>10))
			h = h*31 + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = h*31 + r
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// AssignSources deterministically picks k distinct source keys for an
// author. When fewer than k keys exist all of them are returned. The result
// order is primary first.
func AssignSources(authorID string, keys []string, k int) []string {
	n := len(keys)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	primary := int(HashAuthor(authorID) % uint32(n))
	taken := make(map[int]bool, k)
	out := make([]string, 0, k)
	for i := 0; len(out) < k; i++ {
		stride := 0
		if i < len(assignmentStrides) {
			stride = assignmentStrides[i]
		} else {
			stride = assignmentStrides[len(assignmentStrides)-1] + i
		}
		idx := (primary + stride) % n
		for taken[idx] {
			idx = (idx + 1) % n
		}
		taken[idx] = true
		out = append(out, keys[idx])
	}
	return out
}
