package model

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// Reply is the decoded form of a model response: either Structured, holding
// the parsed value, or Unstructured, holding only the raw text. Callers must
// handle both.
type Reply[T any] struct {
	value      T
	raw        string
	structured bool
}

// Structured returns the parsed value and true, or the zero value and false
// when the model did not answer in the requested shape.
func (r Reply[T]) Structured() (T, bool) {
	return r.value, r.structured
}

// Raw returns the response text exactly as the model produced it.
func (r Reply[T]) Raw() string {
	return r.raw
}

// DecodeObject looks for a JSON object in raw and decodes it into T.
func DecodeObject[T any](raw string) Reply[T] {
	return decode[T](raw, '{', '}')
}

// DecodeArray looks for a JSON array in raw and decodes it into []T.
func DecodeArray[T any](raw string) Reply[[]T] {
	return decode[[]T](raw, '[', ']')
}

// decode tries, in order, the whole reply, the first fenced code block and
// the widest span between open and close. Models routinely wrap JSON in prose
// or markdown fences.
func decode[T any](raw string, opener, closer byte) Reply[T] {
	reply := Reply[T]{raw: raw}
	for _, candidate := range candidates(raw, opener, closer) {
		if candidate == "" || candidate[0] != opener {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			reply.value = v
			reply.structured = true
			return reply
		}
	}
	return reply
}

func candidates(raw string, opener, closer byte) []string {
	trimmed := strings.TrimSpace(raw)
	out := []string{trimmed}
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	start := strings.IndexByte(trimmed, opener)
	end := strings.LastIndexByte(trimmed, closer)
	if start >= 0 && end > start {
		out = append(out, trimmed[start:end+1])
	}
	return out
}
