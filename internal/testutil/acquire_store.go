package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/weatherbox/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a fresh database under a temporary directory
func AcquireStore(ctx context.Context, t TestLog, name string) (*store.Control, func()) {
	dir, err := os.MkdirTemp("", "weatherbox-tests")
	if err != nil {
		t.Fatal(err)
	}
	ctl, err := store.Open(ctx, filepath.Join(dir, name, "weatherbox.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return ctl, func() {
		err := ctl.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
