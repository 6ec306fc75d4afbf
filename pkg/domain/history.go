package domain

// SecretHistoryCapacity is the number of previous secret hashes retained.
const SecretHistoryCapacity = 5

// SecretHistory is a fixed-capacity ring of previous secret hashes,
// most recent first. Pushing past capacity evicts the oldest entry.
type SecretHistory struct {
	buf   [SecretHistoryCapacity]string
	head  int // index of the most recent entry
	count int
}

// NewSecretHistory builds a history from hashes ordered most-recent-first.
// Entries beyond capacity are dropped from the old end.
func NewSecretHistory(hashes []string) SecretHistory {
	var h SecretHistory
	if len(hashes) > SecretHistoryCapacity {
		hashes = hashes[:SecretHistoryCapacity]
	}
	for i := len(hashes) - 1; i >= 0; i-- {
		h.Push(hashes[i])
	}
	return h
}

// Push records hash as the most recent entry.
func (h *SecretHistory) Push(hash string) {
	if hash == "" {
		return
	}
	h.head = (h.head + SecretHistoryCapacity - 1) % SecretHistoryCapacity
	h.buf[h.head] = hash
	if h.count < SecretHistoryCapacity {
		h.count++
	}
}

// Len returns the number of retained hashes.
func (h SecretHistory) Len() int {
	return h.count
}

// Hashes returns the retained hashes, most recent first.
func (h SecretHistory) Hashes() []string {
	out := make([]string, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%SecretHistoryCapacity]
	}
	return out
}

// Any reports whether match returns true for a retained hash.
func (h SecretHistory) Any(match func(hash string) bool) bool {
	for i := 0; i < h.count; i++ {
		if match(h.buf[(h.head+i)%SecretHistoryCapacity]) {
			return true
		}
	}
	return false
}
