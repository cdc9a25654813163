package history

import "context"

// Recorder receives one entry per answered query. Callers treat its error
// as non-fatal.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// StoreRecorder appends entries to a Store.
type StoreRecorder struct {
	Store *Store
}

func (r StoreRecorder) Record(ctx context.Context, e Entry) error {
	_, err := r.Store.Append(ctx, e)
	return err
}

// NopRecorder discards entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }
