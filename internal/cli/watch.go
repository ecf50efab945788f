package cli

import (
	"context"
	"os"
	"time"
)

// watchFile calls onChange whenever the modification time or size of path
// changes, checking every interval until ctx is done. A file that
// temporarily disappears, as with editors that write by rename, is not a
// change.
func watchFile(ctx context.Context, path string, interval time.Duration, onChange func()) {
	last, _ := os.Stat(path)

	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}

		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if last != nil && fi.ModTime().Equal(last.ModTime()) && fi.Size() == last.Size() {
			continue
		}
		last = fi
		onChange()
	}
}
