package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RGB is a display color triple.
type RGB [3]int

// CodedEntry is a single vocabulary code. Keys that are not one of the known
// scalar fields are kept as raw child vocabularies (for example "Type" under
// a category or "Modifier" under a region).
type CodedEntry struct {
	CodeValue                  string
	CodingSchemeDesignator     string
	CodeMeaning                string
	ContextGroupName           string
	RecommendedDisplayRGBValue *RGB
	ShowAnatomy                bool
	Children                   map[string]json.RawMessage
}

// Child returns the raw child vocabulary stored under level.
func (e CodedEntry) Child(level string) (json.RawMessage, bool) {
	raw, ok := e.Children[level]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// Same reports whether both entries denote the same code.
func (e CodedEntry) Same(other CodedEntry) bool {
	return e.CodeValue == other.CodeValue && e.CodingSchemeDesignator == other.CodingSchemeDesignator
}

func (e CodedEntry) String() string {
	return fmt.Sprintf("(%s, %s, %q)", e.CodeValue, e.CodingSchemeDesignator, e.CodeMeaning)
}

// canonicalKey maps the key spellings found in published vocabularies (and
// the underscore-prefixed keys of XML converted ones) onto field names.
func canonicalKey(key string) string {
	switch strings.TrimPrefix(key, "_") {
	case "CodeValue", "codeValue":
		return "CodeValue"
	case "CodingSchemeDesignator", "codingSchemeDesignator", "codingScheme":
		return "CodingSchemeDesignator"
	case "CodeMeaning", "codeMeaning":
		return "CodeMeaning"
	case "contextGroupName", "ContextGroupName":
		return "contextGroupName"
	case "recommendedDisplayRGBValue", "RecommendedDisplayRGBValue":
		return "recommendedDisplayRGBValue"
	case "showAnatomy", "ShowAnatomy":
		return "showAnatomy"
	}
	return ""
}

// UnmarshalJSON decodes a vocabulary entry.
func (e *CodedEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("catalog: coded entry: %w", err)
	}

	out := CodedEntry{}
	for key, raw := range fields {
		var err error
		switch canonicalKey(key) {
		case "CodeValue":
			out.CodeValue, err = decodeScalar(raw)
		case "CodingSchemeDesignator":
			out.CodingSchemeDesignator, err = decodeScalar(raw)
		case "CodeMeaning":
			out.CodeMeaning, err = decodeScalar(raw)
		case "contextGroupName":
			out.ContextGroupName, err = decodeScalar(raw)
		case "recommendedDisplayRGBValue":
			out.RecommendedDisplayRGBValue, err = decodeRGB(raw)
		case "showAnatomy":
			out.ShowAnatomy, err = decodeBool(raw)
		default:
			if out.Children == nil {
				out.Children = make(map[string]json.RawMessage)
			}
			out.Children[key] = append(json.RawMessage(nil), raw...)
		}
		if err != nil {
			return fmt.Errorf("catalog: coded entry field %q: %w", key, err)
		}
	}
	*e = out
	return nil
}

// MarshalJSON encodes the entry with its current key names.
func (e CodedEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 6+len(e.Children))
	for key, raw := range e.Children {
		out[key] = raw
	}
	out["CodeValue"] = e.CodeValue
	out["CodingSchemeDesignator"] = e.CodingSchemeDesignator
	out["CodeMeaning"] = e.CodeMeaning
	if e.ContextGroupName != "" {
		out["contextGroupName"] = e.ContextGroupName
	}
	if e.RecommendedDisplayRGBValue != nil {
		out["recommendedDisplayRGBValue"] = e.RecommendedDisplayRGBValue[:]
	}
	if e.ShowAnatomy {
		out["showAnatomy"] = true
	}
	return json.Marshal(out)
}

// ChildLevels lists the child vocabulary keys in sorted order.
func (e CodedEntry) ChildLevels() []string {
	levels := make([]string, 0, len(e.Children))
	for key := range e.Children {
		levels = append(levels, key)
	}
	sort.Strings(levels)
	return levels
}

func decodeScalar(raw json.RawMessage) (string, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", err
	}
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(typed), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unexpected %T", value)
	}
}

func decodeBool(raw json.RawMessage) (bool, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, err
	}
	switch typed := value.(type) {
	case nil:
		return false, nil
	case bool:
		return typed, nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(typed))
	default:
		return false, fmt.Errorf("unexpected %T", value)
	}
}

func decodeRGB(raw json.RawMessage) (*RGB, error) {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("expected 3 components, got %d", len(values))
	}
	var rgb RGB
	for idx, value := range values {
		var n int
		switch typed := value.(type) {
		case float64:
			n = int(typed)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(typed))
			if err != nil {
				return nil, err
			}
			n = parsed
		default:
			return nil, fmt.Errorf("unexpected component %T", value)
		}
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("component %d out of range", n)
		}
		rgb[idx] = n
	}
	return &rgb, nil
}
