package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoJSON is returned when model output carries no JSON object.
var ErrNoJSON = errors.New("no json object found in model output")

// ExtractJSON strips markdown fences from raw model output and returns the
// outermost JSON object it contains.
func ExtractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	if json.Valid([]byte(raw)) && strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", ErrNoJSON
	}

	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", ErrNoJSON
	}

	return candidate, nil
}

// DecodeObject extracts the JSON object from raw model output and decodes it
// into target using mapstructure tags. Decoding is weakly typed so "4" fills
// an int field and "true" fills a bool field.
func DecodeObject(raw string, target any) (map[string]any, error) {
	cleaned, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	if target == nil {
		return data, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	return data, nil
}

// Remainder returns raw with the extracted JSON object removed.
func Remainder(raw, object string) string {
	if object == "" {
		return strings.TrimSpace(raw)
	}
	rest := strings.Replace(raw, object, "", 1)
	rest = strings.ReplaceAll(rest, "```json", "")
	rest = strings.ReplaceAll(rest, "```", "")
	return strings.TrimSpace(rest)
}
