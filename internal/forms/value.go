package forms

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the textual form dates take inside a stored document.
const DateLayout = "2006-01-02"

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	ValueText ValueKind = iota + 1
	ValueNumber
	ValueDate
	ValueList
	ValueBool
)

// Value is a tagged union holding one answer of the intake document.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	date    time.Time
	list    []string
	boolean bool
}

func Text(s string) Value { return Value{kind: ValueText, text: s} }

func Number(f float64) Value { return Value{kind: ValueNumber, number: f} }

// Date keeps the calendar day of t in UTC.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: ValueDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func List(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ValueList, list: cp}
}

func Bool(b bool) Value { return Value{kind: ValueBool, boolean: b} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsText() string { return v.text }

func (v Value) AsNumber() float64 { return v.number }

func (v Value) AsDate() time.Time { return v.date }

func (v Value) AsBool() bool { return v.boolean }

func (v Value) AsList() []string {
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// IsEmpty reports whether the answer counts as unanswered. Numbers and
// booleans always carry an answer.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueText:
		return strings.TrimSpace(v.text) == ""
	case ValueList:
		return len(v.list) == 0
	case ValueDate:
		return v.date.IsZero()
	case ValueNumber, ValueBool:
		return false
	}
	return true
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueText:
		return v.text == other.text
	case ValueNumber:
		return v.number == other.number
	case ValueDate:
		return v.date.Equal(other.date)
	case ValueBool:
		return v.boolean == other.boolean
	case ValueList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	}
	return true
}

// Display renders the value for people: dates as dd/mm/yyyy, lists joined
// with ", " and booleans as Sim/Não.
func (v Value) Display() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case ValueDate:
		if v.date.IsZero() {
			return ""
		}
		return v.date.Format("02/01/2006")
	case ValueList:
		return strings.Join(v.list, ", ")
	case ValueBool:
		if v.boolean {
			return "Sim"
		}
		return "Não"
	}
	return ""
}

// MarshalJSON encodes dates as YYYY-MM-DD and lists as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNumber:
		return json.Marshal(v.number)
	case ValueDate:
		if v.date.IsZero() {
			return []byte(`""`), nil
		}
		return json.Marshal(v.date.Format(DateLayout))
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueBool:
		return json.Marshal(v.boolean)
	default:
		return json.Marshal(v.text)
	}
}
