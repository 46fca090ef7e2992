package capture

import (
	"context"
	"time"

	"epochcap/internal/dataset"
	"epochcap/internal/render"
)

// encodeFrame composes epoch index of ds and returns PNG bytes.
func encodeFrame(c render.Composer, ds *dataset.Dataset, index int) ([]byte, error) {
	return render.EncodePNG(c.Compose(ds, index))
}

// sleep waits for d or until ctx is done. It reports ctx.Err() when the wait
// was cut short.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
