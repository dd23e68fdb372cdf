package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AnswerPayload is the tagged union carried by userAnswer and correctAnswer:
// Text | List | Mapping | GroupedMapping.
type AnswerPayload interface {
	isAnswerPayload()
}

type (
	Text           string
	List           []string
	Mapping        map[string]string
	GroupedMapping map[string][]string
)

func (Text) isAnswerPayload()           {}
func (List) isAnswerPayload()           {}
func (Mapping) isAnswerPayload()        {}
func (GroupedMapping) isAnswerPayload() {}

// VariantName is used in error messages.
func VariantName(p AnswerPayload) string {
	switch p.(type) {
	case Text:
		return "text"
	case List:
		return "list"
	case Mapping:
		return "mapping"
	case GroupedMapping:
		return "grouped mapping"
	case nil:
		return "nothing"
	default:
		return fmt.Sprintf("%T", p)
	}
}

// DecodePayload turns raw JSON into a payload variant by its shape.
// Numbers become Text so MCQ indices sent as 1 and "1" behave the same.
func DecodePayload(raw json.RawMessage) (AnswerPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make(List, 0, len(items))
		for _, it := range items {
			s, err := scalarString(it)
			if err != nil {
				return nil, fmt.Errorf("list item: %w", err)
			}
			out = append(out, s)
		}
		return out, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		grouped := false
		for _, v := range fields {
			if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
				grouped = true
				break
			}
		}
		if grouped {
			out := make(GroupedMapping, len(fields))
			for k, v := range fields {
				p, err := DecodePayload(v)
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", k, err)
				}
				switch x := p.(type) {
				case List:
					out[k] = []string(x)
				case Text:
					out[k] = []string{string(x)}
				case nil:
					out[k] = nil
				default:
					return nil, fmt.Errorf("key %q: nested %s not allowed", k, VariantName(p))
				}
			}
			return out, nil
		}
		out := make(Mapping, len(fields))
		for k, v := range fields {
			s, err := scalarString(v)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = s
		}
		return out, nil
	default:
		s, err := scalarString(raw)
		if err != nil {
			return nil, err
		}
		return Text(s), nil
	}
}

func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", string(raw[:1]))
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return "", err
	}
	return strconv.FormatBool(b), nil
}

// OrderedKeys sorts mapping keys numerically when every key is an integer,
// otherwise lexically.
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	numeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.Atoi(strings.TrimSpace(k)); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(strings.TrimSpace(keys[i]))
			b, _ := strconv.Atoi(strings.TrimSpace(keys[j]))
			return a < b
		})
		return keys
	}
	sort.Strings(keys)
	return keys
}

// Values returns the mapping values in OrderedKeys order.
func (m Mapping) Values() []string {
	keys := OrderedKeys(m)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// AnswerText flattens any payload into plain text for prompts and annotation checks.
func AnswerText(p AnswerPayload) string {
	switch v := p.(type) {
	case Text:
		return string(v)
	case List:
		return strings.Join(v, "\n")
	case Mapping:
		var b strings.Builder
		for _, k := range OrderedKeys(v) {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(k + ": " + v[k])
		}
		return b.String()
	case GroupedMapping:
		var b strings.Builder
		for _, k := range OrderedKeys(v) {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(k + ": " + strings.Join(v[k], ", "))
		}
		return b.String()
	default:
		return ""
	}
}
