package loader

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

func readFS(ctx context.Context, files fs.FS, name string, maxBytes int64) ([]byte, error) {
	if files == nil {
		return nil, errors.New("loader: no fs configured for fs sources")
	}
	// fs names are always relative; "fs:/schemas/x.json" means the same file
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return nil, errors.New("loader: fs path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := files.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return readCapped(f, name, maxBytes)
}
