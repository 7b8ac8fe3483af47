package database

// BatchWriter buffers items and hands them to a flush function in fixed-size
// chunks, so bulk persistence cost stays bounded no matter how many items a
// single generation run produces. Callers must Flush once they are done
// adding; Add flushes automatically whenever the buffer fills.
type BatchWriter[T any] struct {
	size  int
	buf   []T
	flush func(items []T) error
}

func NewBatchWriter[T any](size int, flush func(items []T) error) *BatchWriter[T] {
	if size < 1 {
		size = 1
	}
	return &BatchWriter[T]{
		size:  size,
		buf:   make([]T, 0, size),
		flush: flush,
	}
}

func (w *BatchWriter[T]) Add(item T) error {
	w.buf = append(w.buf, item)
	if len(w.buf) >= w.size {
		return w.Flush()
	}
	return nil
}

func (w *BatchWriter[T]) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	items := w.buf
	w.buf = make([]T, 0, w.size)
	return w.flush(items)
}

func (w *BatchWriter[T]) Buffered() int {
	return len(w.buf)
}
