package artifact

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MIMEType is the media type the document is offered with.
	MIMEType = "text/json"
	// DefaultIdentifier names the file when the user supplied none.
	DefaultIdentifier = "meta"
)

// Artifact is a downloadable meta information document.
type Artifact struct {
	Filename string
	MIMEType string
	Data     []byte
}

// New encodes document as indented UTF-8 JSON named "<identifier>.json".
func New(identifier string, document any) (Artifact, error) {
	if document == nil {
		return Artifact{}, errors.New("artifact: document is nil")
	}
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact: encode: %w", err)
	}
	return Artifact{
		Filename: Filename(identifier),
		MIMEType: MIMEType,
		Data:     append(data, '\n'),
	}, nil
}

// Filename derives the file name from a user supplied identifier. Path
// separators are replaced so the name stays inside the target directory.
func Filename(identifier string) string {
	name := strings.TrimSpace(identifier)
	name = strings.TrimSuffix(name, ".json")
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		name = DefaultIdentifier
	}
	return name + ".json"
}

// DataURI returns the base64 data URI used for in-browser downloads.
func (a Artifact) DataURI() string {
	return "data:" + a.MIMEType + ";charset=utf-8;base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// WriteFile writes the artifact into dir and returns the full path.
func (a Artifact) WriteFile(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}
