package forms

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Document is the ordered key/value payload of a student intake.
// Keys keep the order in which they were first set.
type Document struct {
	keys   []string
	values map[string]Value
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: map[string]Value{}}
}

// ParseDocument decodes a stored document. Blank input yields an empty document.
func ParseDocument(raw string) (*Document, error) {
	doc := NewDocument()
	if len(bytes.TrimSpace([]byte(raw))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) Set(key string, v Value) {
	if d.values == nil {
		d.values = map[string]Value{}
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

func (d *Document) Get(key string) (Value, bool) {
	if d == nil || d.values == nil {
		return Value{}, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Delete removes key, keeping the order of the rest.
func (d *Document) Delete(key string) {
	if _, ok := d.Get(key); !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Text returns the display form of key, or "" when absent.
func (d *Document) Text(key string) string {
	v, ok := d.Get(key)
	if !ok {
		return ""
	}
	return v.Display()
}

// String returns the stored JSON form.
func (d Document) String() string {
	raw, err := d.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// MarshalJSON writes the keys in insertion order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := d.values[key].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object. Strings stay text; dates are
// recovered later against the schema by Prefill.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("document must be a JSON object")
	}

	d.keys = nil
	d.values = map[string]Value{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		v, err := decodeStored(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		d.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeStored(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Text(""), nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, err
		}
		return Text(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case 'n':
		return Text(""), nil
	case '[':
		var items []interface{}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Value{}, err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				list = append(list, s)
				continue
			}
			list = append(list, fmt.Sprint(item))
		}
		return List(list), nil
	case '{':
		return Value{}, errors.New("nested objects are not supported")
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
}

// Value implements driver.Valuer so a document can be written to a TEXT column.
func (d Document) Value() (driver.Value, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Document{values: map[string]Value{}}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*d = Document{values: map[string]Value{}}
		return nil
	}
	return d.UnmarshalJSON(raw)
}
