package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// StableKey renders v as canonical JSON: object keys sorted at every depth,
// array order kept, HTML characters left unescaped. A container that is
// already being rendered further up the current path is written as null.
//
// Structs and other typed values are first projected through encoding/json so
// their JSON field names are what gets sorted.
func StableKey(v any) (string, error) {
	w := &stableWriter{visiting: make(map[uintptr]bool)}
	if err := w.write(v); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

// StableHash is the lowercase hex SHA-256 of StableKey(v).
func StableHash(v any) (string, error) {
	key, err := StableKey(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(key), nil
}

func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type stableWriter struct {
	buf      bytes.Buffer
	visiting map[uintptr]bool
}

func (w *stableWriter) write(v any) error {
	switch x := v.(type) {
	case nil:
		w.buf.WriteString("null")
		return nil
	case string:
		return w.scalar(x)
	case bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return w.scalar(x)
	case json.RawMessage:
		var decoded any
		dec := json.NewDecoder(bytes.NewReader(x))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return fmt.Errorf("stable key: decode raw message: %w", err)
		}
		return w.write(decoded)
	case map[string]any:
		if x == nil {
			w.buf.WriteString("null")
			return nil
		}
		return w.object(reflect.ValueOf(x).Pointer(), x)
	case []any:
		var id uintptr
		if len(x) > 0 {
			id = reflect.ValueOf(x).Pointer()
		}
		return w.array(id, x)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return w.array(0, items)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			w.buf.WriteString("null")
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			id := rv.Pointer()
			if w.visiting[id] {
				w.buf.WriteString("null")
				return nil
			}
			w.visiting[id] = true
			defer delete(w.visiting, id)
		}
		return w.write(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			w.buf.WriteString("null")
			return nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return w.object(rv.Pointer(), m)
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			w.buf.WriteString("null")
			return nil
		}
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			var id uintptr
			if rv.Kind() == reflect.Slice && rv.Len() > 0 {
				id = rv.Pointer()
			}
			items := make([]any, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).Interface()
			}
			return w.array(id, items)
		}
	}

	// Structs and anything else: round-trip through encoding/json.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stable key: %w", err)
	}
	return w.write(json.RawMessage(raw))
}

func (w *stableWriter) object(id uintptr, m map[string]any) error {
	if id != 0 {
		if w.visiting[id] {
			w.buf.WriteString("null")
			return nil
		}
		w.visiting[id] = true
		defer delete(w.visiting, id)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.scalar(k); err != nil {
			return err
		}
		w.buf.WriteByte(':')
		if err := w.write(m[k]); err != nil {
			return err
		}
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *stableWriter) array(id uintptr, items []any) error {
	if id != 0 {
		if w.visiting[id] {
			w.buf.WriteString("null")
			return nil
		}
		w.visiting[id] = true
		defer delete(w.visiting, id)
	}

	w.buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.write(item); err != nil {
			return err
		}
	}
	w.buf.WriteByte(']')
	return nil
}

func (w *stableWriter) scalar(v any) error {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("stable key: %w", err)
	}
	w.buf.Write(bytes.TrimRight(b.Bytes(), "\n"))
	return nil
}
