package ygggo_db

// Chunk splits items into order-preserving consecutive batches. The chunk
// count is max(1, len/size) using integer division: every chunk except the
// last holds exactly size items and the final chunk absorbs the remainder,
// so it may grow up to size-1 items past size (10 items at size 3 chunk as
// 3, 3, 4). That growth is a deliberate compatibility behavior; use
// ChunkEvery when every chunk must stay within size.
//
// A size below 1 is treated as 1. Empty input yields no chunks. Chunks are
// subslices sharing the input's backing array.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	n := len(items) / size
	if n == 0 {
		n = 1
	}
	out := make([][]T, 0, n)
	for i := 0; i < n; i++ {
		lo := i * size
		hi := lo + size
		if i == n-1 {
			hi = len(items)
		}
		out = append(out, items[lo:hi])
	}
	return out
}

// ChunkEvery is the strictly capped variant of Chunk: every chunk holds at
// most size items, the count is ceil(len/size) and only the final chunk may
// run short.
func ChunkEvery[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for lo := 0; lo < len(items); lo += size {
		hi := lo + size
		if hi > len(items) {
			hi = len(items)
		}
		out = append(out, items[lo:hi])
	}
	return out
}
