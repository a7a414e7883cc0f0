package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcmmeta/pkg/catalog"
)

// ParseRGB parses an "rgb(r, g, b)" string. Bare "r,g,b" triples are
// accepted too. Anything that does not yield exactly three integers in
// 0..255 is an error.
func ParseRGB(raw string) (catalog.RGB, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(trimmed), "rgb(") {
		if !strings.HasSuffix(trimmed, ")") {
			return catalog.RGB{}, fmt.Errorf("assemble: malformed color %q", raw)
		}
		trimmed = trimmed[len("rgb(") : len(trimmed)-1]
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return catalog.RGB{}, fmt.Errorf("assemble: color %q needs 3 components, got %d", raw, len(parts))
	}
	var rgb catalog.RGB
	for idx, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return catalog.RGB{}, fmt.Errorf("assemble: color %q component %d: %w", raw, idx, err)
		}
		if value < 0 || value > 255 {
			return catalog.RGB{}, fmt.Errorf("assemble: color %q component %d out of range", raw, idx)
		}
		rgb[idx] = value
	}
	return rgb, nil
}

// FormatRGB renders rgb as "rgb(r, g, b)".
func FormatRGB(rgb catalog.RGB) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb[0], rgb[1], rgb[2])
}
