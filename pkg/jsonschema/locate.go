package jsonschema

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

// IDMapping rewrites references that use a canonical id prefix into the
// location the documents are actually fetched from.
type IDMapping struct {
	IDPrefix  string `json:"idPrefix" yaml:"idPrefix"`
	URLPrefix string `json:"urlPrefix" yaml:"urlPrefix"`
}

// LocationKey returns the cache key for src. Keys are prefixed with the
// source kind so a file and a URL with the same text never collide.
func LocationKey(src schema.Source) (string, error) {
	if src == nil {
		return "", errors.New("jsonschema: source is nil")
	}
	location := src.Location()
	switch src.Kind() {
	case schema.SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", err
		}
		return "file:" + abs, nil
	case schema.SourceKindFS:
		return "fs:" + path.Clean(strings.TrimPrefix(location, "/")), nil
	case schema.SourceKindURL:
		return "url:" + location, nil
	default:
		return "", errors.New("jsonschema: unsupported source kind")
	}
}

// locator turns $ref targets into loadable sources relative to the
// document that contains them.
type locator struct {
	allowTraversal bool
	mappings       []IDMapping
	rootBase       string
}

func newLocator(root schema.Source, opts ResolveOptions) (*locator, error) {
	base, err := baseDir(root)
	if err != nil {
		return nil, err
	}
	return &locator{
		allowTraversal: opts.AllowPathTraversal,
		mappings:       opts.IDMappings,
		rootBase:       base,
	}, nil
}

func baseDir(src schema.Source) (string, error) {
	switch src.Kind() {
	case schema.SourceKindFile:
		abs, err := filepath.Abs(src.Location())
		if err != nil {
			return "", err
		}
		return filepath.Dir(abs), nil
	case schema.SourceKindFS:
		return path.Dir(path.Clean(strings.TrimPrefix(src.Location(), "/"))), nil
	case schema.SourceKindURL:
		return path.Dir(src.Location()), nil
	default:
		return "", errors.New("jsonschema: unsupported source kind")
	}
}

func (l *locator) rewrite(ref string) string {
	for _, m := range l.mappings {
		if m.IDPrefix != "" && strings.HasPrefix(ref, m.IDPrefix) {
			return m.URLPrefix + strings.TrimPrefix(ref, m.IDPrefix)
		}
	}
	return ref
}

// target resolves a schema-file reference (fragment already removed) found
// inside the document loaded from from.
func (l *locator) target(from schema.Source, ref string) (schema.Source, error) {
	ref = l.rewrite(ref)
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid ref %q", ref)
	}
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		return schema.ParseURLSource(parsed.String())
	case parsed.Scheme == "file":
		return schema.SourceFromFile(parsed.Path), nil
	case parsed.Scheme != "":
		return nil, fmt.Errorf("jsonschema: unsupported ref scheme %q", parsed.Scheme)
	}

	switch from.Kind() {
	case schema.SourceKindFile:
		dir, err := baseDir(from)
		if err != nil {
			return nil, err
		}
		resolved, err := l.cleanFilePath(dir, parsed.Path)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFile(resolved), nil
	case schema.SourceKindFS:
		dir, err := baseDir(from)
		if err != nil {
			return nil, err
		}
		resolved, err := l.cleanFSPath(dir, parsed.Path)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFS(resolved), nil
	case schema.SourceKindURL:
		base, err := url.Parse(from.Location())
		if err != nil {
			return nil, err
		}
		return schema.ParseURLSource(base.ResolveReference(parsed).String())
	default:
		return nil, errors.New("jsonschema: unsupported source kind")
	}
}

func (l *locator) cleanFilePath(dir, refPath string) (string, error) {
	candidate := refPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(dir, refPath)
	}
	candidate = filepath.Clean(candidate)
	if l.allowTraversal {
		return candidate, nil
	}
	rel, err := filepath.Rel(l.rootBase, candidate)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("jsonschema: ref path escapes root (%s)", refPath)
	}
	return candidate, nil
}

func (l *locator) cleanFSPath(dir, refPath string) (string, error) {
	candidate := strings.TrimPrefix(path.Clean(path.Join(dir, refPath)), "/")
	if l.allowTraversal {
		return candidate, nil
	}
	root := strings.TrimPrefix(path.Clean(l.rootBase), "/")
	if root == "." {
		root = ""
	}
	if root == "" {
		if strings.HasPrefix(candidate, "..") {
			return "", fmt.Errorf("jsonschema: ref path escapes root (%s)", refPath)
		}
		return candidate, nil
	}
	if candidate == root || strings.HasPrefix(candidate, root+"/") {
		return candidate, nil
	}
	return "", fmt.Errorf("jsonschema: ref path escapes root (%s)", refPath)
}

func splitRef(ref string) (string, string) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
