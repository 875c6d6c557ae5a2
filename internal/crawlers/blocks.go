package crawlers

// SplitIntoBlocks 按固定大小切块,保持原顺序
// 最后一块可能不足size
func SplitIntoBlocks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}

	blocks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		blocks = append(blocks, items[start:end:end])
	}
	return blocks
}
