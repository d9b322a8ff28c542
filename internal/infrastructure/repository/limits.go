package repository

// defaultBatchSize bounds sweep queries when the caller passes no limit.
const defaultBatchSize = 500

func batchLimit(limit int) int {
	if limit <= 0 {
		return defaultBatchSize
	}
	return limit
}
