package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
	"github.com/goliatone/go-dcmmeta/pkg/schema"
)

// ErrSchemaNotLoaded is reported when validation is requested before a
// schema closure has been resolved and compiled.
var ErrSchemaNotLoaded = errors.New("validation: schema not loaded")

// ParseError wraps the decoder failure for a candidate document that is not
// valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Issue is one failing constraint.
type Issue struct {
	// Path is the JSON pointer of the offending value ("#" for the root).
	Path string `json:"path,omitempty"`
	// Field is Path as a dotted field path.
	Field   string `json:"field,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message"`
}

// Outcome is the result of one validation call.
type Outcome struct {
	Valid     bool    `json:"valid"`
	NotLoaded bool    `json:"notLoaded,omitempty"`
	Issues    []Issue `json:"issues,omitempty"`
	// Err is ErrSchemaNotLoaded or a *ParseError when the document never
	// reached the schema engine.
	Err error `json:"-"`
}

// Messages returns one human readable line per issue.
func (o Outcome) Messages() []string {
	out := make([]string, 0, len(o.Issues))
	for _, issue := range o.Issues {
		out = append(out, issue.Message)
	}
	return out
}

// NotLoadedOutcome is the sentinel outcome returned while no schema is bound.
func NotLoadedOutcome() Outcome {
	return Outcome{
		NotLoaded: true,
		Issues:    []Issue{{Message: ErrSchemaNotLoaded.Error()}},
		Err:       ErrSchemaNotLoaded,
	}
}

// Validator checks documents against one compiled schema.
type Validator struct {
	schemaID string
	schema   *jsonschema.Schema
}

// Compile binds a validator to schemaID, a canonical id or fetch location,
// using every document in closure as the reference universe. Each member is
// addressable by its fetch location, by the id it declares and by any
// mapped form of either. Documents without "$schema" are read as draft-04.
func Compile(schemaID string, closure []pkgjsonschema.Loaded, mappings ...pkgjsonschema.IDMapping) (*Validator, error) {
	id := schema.NormalizeID(schemaID)
	if id == "" {
		return nil, errors.New("validation compile: schema id is required")
	}
	if len(closure) == 0 {
		return nil, errors.New("validation compile: closure is empty")
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft4)
	// only closure members are reachable; nothing is read from disk or network
	compiler.UseLoader(jsonschema.SchemeURLLoader{})

	targets := make(map[string]string)
	added := make(map[string]struct{})
	for _, entry := range closure {
		primary, err := resourceURL(entry)
		if err != nil {
			return nil, fmt.Errorf("validation compile: %w", err)
		}
		doc, err := decodeResource(entry)
		if err != nil {
			return nil, fmt.Errorf("validation compile: %s: %w", entry.Location(), err)
		}

		declared := entry.DeclaredID()
		target := primary
		if declared != "" {
			target = declared
		}
		for _, alias := range aliases(mappings, primary, declared) {
			if _, ok := added[alias]; ok {
				continue
			}
			if err := compiler.AddResource(alias, doc); err != nil {
				return nil, fmt.Errorf("validation compile: register %s: %w", alias, err)
			}
			added[alias] = struct{}{}
			if _, ok := targets[alias]; !ok {
				targets[alias] = target
			}
		}
		for _, alias := range []string{entry.Key, schema.NormalizeID(entry.Location())} {
			if _, ok := targets[alias]; alias != "" && !ok {
				targets[alias] = target
			}
		}
	}

	location := id
	if target, ok := targets[id]; ok {
		location = target
	} else {
		for _, alias := range aliases(mappings, id, "") {
			if target, ok := targets[alias]; ok {
				location = target
				break
			}
		}
	}

	compiled, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("validation compile: %s: %w", id, err)
	}
	return &Validator{schemaID: id, schema: compiled}, nil
}

// resourceURL is the absolute URL a closure member is registered under.
func resourceURL(entry pkgjsonschema.Loaded) (string, error) {
	if entry.Source == nil {
		return "", errors.New("closure member has no source")
	}
	location := entry.Source.Location()
	switch entry.Source.Kind() {
	case schema.SourceKindURL:
		return schema.NormalizeID(location), nil
	case schema.SourceKindFS:
		return "fs:///" + path.Clean(strings.TrimPrefix(location, "/")), nil
	case schema.SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", err
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	default:
		return "", fmt.Errorf("unsupported source kind %q", entry.Source.Kind())
	}
}

func decodeResource(entry pkgjsonschema.Loaded) (any, error) {
	raw := entry.Raw
	if len(raw) == 0 {
		encoded, err := json.Marshal(entry.Body)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// aliases lists the distinct addresses of one document, including the
// id-prefix and url-prefix rewrites of each.
func aliases(mappings []pkgjsonschema.IDMapping, ids ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(value string) {
		value = schema.NormalizeID(value)
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	for _, id := range ids {
		add(id)
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		for _, m := range mappings {
			if m.IDPrefix != "" && strings.HasPrefix(id, m.IDPrefix) {
				add(m.URLPrefix + strings.TrimPrefix(id, m.IDPrefix))
			}
			if m.URLPrefix != "" && strings.HasPrefix(id, m.URLPrefix) {
				add(m.IDPrefix + strings.TrimPrefix(id, m.URLPrefix))
			}
		}
	}
	return out
}

// SchemaID returns the id the validator was compiled for.
func (v *Validator) SchemaID() string {
	if v == nil {
		return ""
	}
	return v.schemaID
}

// Validate parses raw and validates the result. Invalid JSON produces a
// single issue carrying the decoder message.
func (v *Validator) Validate(raw []byte) Outcome {
	if v == nil {
		return NotLoadedOutcome()
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(bytes.TrimSpace(raw)))
	if err != nil {
		return parseOutcome(err)
	}
	return v.visit(value)
}

// ValidateValue validates an already decoded document.
func (v *Validator) ValidateValue(value any) Outcome {
	if v == nil {
		return NotLoadedOutcome()
	}
	normalized, err := normalizeValue(value)
	if err != nil {
		return parseOutcome(err)
	}
	return v.visit(normalized)
}

func parseOutcome(err error) Outcome {
	parseErr := &ParseError{Err: err}
	return Outcome{
		Issues: []Issue{{Keyword: "parse", Message: parseErr.Error()}},
		Err:    parseErr,
	}
}

func (v *Validator) visit(value any) Outcome {
	err := v.schema.Validate(value)
	if err == nil {
		return Outcome{Valid: true}
	}

	var issues []Issue
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		printer := message.NewPrinter(language.English)
		for _, leaf := range leaves(validationErr) {
			issues = append(issues, issueFromError(leaf, printer))
		}
	} else {
		issues = append(issues, Issue{Path: "#", Message: strings.TrimSpace(err.Error())})
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Path < issues[j].Path
	})
	return Outcome{Issues: issues}
}

// normalizeValue maps Go values onto the generic JSON model the schema
// engine expects (json.Number numbers, map[string]any objects).
func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// leaves returns the failing constraints under err. Group errors such as
// "$ref", "allOf" or the schema root only carry causes.
func leaves(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func issueFromError(err *jsonschema.ValidationError, printer *message.Printer) Issue {
	pointer := pointerFromSegments(err.InstanceLocation)
	keyword := "schema"
	reason := "constraint failed"
	if err.ErrorKind != nil {
		if keywordPath := err.ErrorKind.KeywordPath(); len(keywordPath) > 0 {
			keyword = keywordPath[0]
		}
		if text := strings.TrimSpace(err.ErrorKind.LocalizedString(printer)); text != "" {
			reason = text
		}
	}
	return Issue{
		Path:    pointer,
		Field:   fieldPathFromPointer(pointer),
		Keyword: keyword,
		Message: fmt.Sprintf("%s: %s at %s", keyword, reason, pointer),
	}
}

func pointerFromSegments(segments []string) string {
	if len(segments) == 0 {
		return "#"
	}
	escaped := make([]string, len(segments))
	for idx, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		escaped[idx] = strings.ReplaceAll(segment, "/", "~1")
	}
	return "#/" + strings.Join(escaped, "/")
}

func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.ReplaceAll(part, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if segment == "" {
			continue
		}
		if isNumeric(segment) && len(out) > 0 {
			out[len(out)-1] += "[" + segment + "]"
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, ".")
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
