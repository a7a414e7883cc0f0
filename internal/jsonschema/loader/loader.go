package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

var (
	// ErrHTTPDisabled is returned for URL sources when no client is configured.
	ErrHTTPDisabled = errors.New("loader: http support disabled")
	// ErrTooLarge is returned once a document exceeds the size cap.
	ErrTooLarge = errors.New("loader: document too large")
)

// Loader implements pkgjsonschema.Loader for schema and vocabulary
// documents read from disk, an fs.FS or HTTP. Every strategy stops reading
// once a document passes the size cap.
type Loader struct {
	files    fs.FS
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

var _ pkgjsonschema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgjsonschema.LoaderOptions) *Loader {
	timeout := options.RequestTimeout

	var client *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		client = &clone
	case options.AllowHTTPFallback:
		client = &http.Client{Timeout: timeout}
	}

	maxBytes := options.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = pkgjsonschema.DefaultMaxDocumentBytes
	}

	return &Loader{
		files:    options.FileSystem,
		client:   client,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Load fetches a document from the provided source.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = readFile(ctx, src.Location(), l.maxBytes)
	case schema.SourceKindFS:
		data, err = readFS(ctx, l.files, src.Location(), l.maxBytes)
	case schema.SourceKindURL:
		if l.client == nil {
			return schema.Document{}, ErrHTTPDisabled
		}
		data, err = fetch(ctx, l.client, src.Location(), l.timeout, l.maxBytes)
	default:
		err = fmt.Errorf("loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return schema.Document{}, err
	}

	return schema.NewDocument(src, data)
}

func readCapped(r io.Reader, location string, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, location, maxBytes)
	}
	return data, nil
}
