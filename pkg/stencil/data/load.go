// Package data loads template data from JSON, YAML and HCL files.
//
// Every loader produces a map[string]any whose values are the plain Go types
// templates evaluate against: strings, numbers, bools, []any and
// map[string]any.
package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// Format names a data file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported data file extension %q for %s", filepath.Ext(path), path)
	}
}

// LoadFile reads a data file, choosing the decoder from its extension.
func LoadFile(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
	}
	return Parse(src, format, path)
}

// LoadFiles loads each file in turn and merges the results. Top-level keys
// from later files replace those of earlier ones.
func LoadFiles(paths ...string) (map[string]any, error) {
	merged := make(map[string]any)
	for _, path := range paths {
		values, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// Parse decodes src as format. filename is used in error messages only.
func Parse(src []byte, format Format, filename string) (map[string]any, error) {
	switch format {
	case FormatJSON:
		return parseJSON(src, filename)
	case FormatYAML:
		return parseYAML(src, filename)
	case FormatHCL:
		return parseHCL(src, filename)
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}
}

func parseJSON(src []byte, filename string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON data %s: %w", filename, err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	out, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", filename, err)
	}
	return out.(map[string]any), nil
}

func parseYAML(src []byte, filename string) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode YAML data %s: %w", filename, err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	out, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", filename, err)
	}
	return out.(map[string]any), nil
}

// parseHCL evaluates every top-level attribute without variables or
// functions, so only literal values are accepted.
func parseHCL(src []byte, filename string) (map[string]any, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL data %s: %w", filename, diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read HCL data %s: %w", filename, diags)
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(attrs))
	for _, name := range names {
		val, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %s in %s: %w", name, filename, diags)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("in attribute '%s' of %s: %w", name, filename, err)
		}
		out[name] = native
	}
	return out, nil
}

// normalize rewrites decoded JSON and YAML trees into the same shapes the HCL
// loader produces: json.Number becomes int or float64 and YAML maps with
// non-string keys get string keys.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", x, err)
		}
		return f, nil
	case map[string]any:
		for k, elem := range x {
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, elem := range x {
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(k)] = n
		}
		return m, nil
	case []any:
		for i, elem := range x {
			n, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	default:
		return v, nil
	}
}
