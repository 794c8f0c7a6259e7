// Package json provides pooled JSON serialization for adapter wire boundaries
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// Marshal encodes v using a pooled buffer and returns a copy of the bytes
func Marshal(v interface{}) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := gojson.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	// Encoder appends a trailing newline; strip it for wire bodies
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}

	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

// MarshalReader encodes v and returns a reader suitable for an HTTP body
func MarshalReader(v interface{}) (io.Reader, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// MarshalIndent encodes v with two-space indentation for human-facing output
func MarshalIndent(v interface{}) ([]byte, error) {
	return gojson.MarshalIndent(v, "", "  ")
}

// Unmarshal decodes data into v
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// Decode decodes a stream into v
func Decode(r io.Reader, v interface{}) error {
	return gojson.NewDecoder(r).Decode(v)
}
