// Package models defines the records stored in a COCO annotation file and
// the run records kept in the project run log.
package models

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

// Extra holds keys a record carried that the model does not name. They are
// written back unchanged on save.
type Extra map[string]json.RawMessage

// Clone returns a deep copy.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// SplitExtra returns the keys of a JSON object that are not in known.
func SplitExtra(data []byte, known ...string) (Extra, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}

// AppendExtra appends extra keys, sorted, to an encoded JSON object.
func AppendExtra(obj []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return obj, nil
	}
	obj = bytes.TrimSpace(obj)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(obj[:len(obj)-1])
	empty := bytes.Equal(bytes.TrimSpace(obj[:len(obj)-1]), []byte("{"))
	for _, k := range keys {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
