package forms

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// behavior bundles everything that varies with a field kind.
type behavior struct {
	// decode turns a submitted answer into a value; ok is false for values of
	// the wrong shape.
	decode func(f Field, raw interface{}) (v Value, ok bool)
	// restore rebuilds a typed value from a stored one.
	restore func(f Field, stored Value, today time.Time) Value
	// blank is the value shown for a field without a stored answer.
	blank func(today time.Time) Value
	// accept reports whether a non-empty value respects the field config.
	accept func(f Field, v Value, today time.Time) bool
}

var (
	textBehavior = behavior{
		decode:  decodeText,
		restore: func(_ Field, stored Value, _ time.Time) Value { return Text(stored.Display()) },
		blank:   func(time.Time) Value { return Text("") },
		accept:  func(Field, Value, time.Time) bool { return true },
	}
	selectBehavior = behavior{
		decode:  decodeText,
		restore: func(_ Field, stored Value, _ time.Time) Value { return Text(stored.Display()) },
		blank:   func(time.Time) Value { return Text("") },
		accept: func(f Field, v Value, _ time.Time) bool {
			return f.Choice == nil || contains(f.Choice.Options, v.AsText())
		},
	}
	multiSelectBehavior = behavior{
		decode:  decodeList,
		restore: restoreList,
		blank:   func(time.Time) Value { return List(nil) },
		accept: func(f Field, v Value, _ time.Time) bool {
			if f.Choice == nil {
				return true
			}
			for _, item := range v.AsList() {
				if !contains(f.Choice.Options, item) {
					return false
				}
			}
			return true
		},
	}
	dateBehavior = behavior{
		decode:  decodeDate,
		restore: restoreDate,
		blank:   func(today time.Time) Value { return Date(today) },
		accept: func(f Field, v Value, today time.Time) bool {
			if f.Date == nil {
				return true
			}
			d := v.AsDate()
			ceiling := Date(today).AsDate()
			if f.Date.Max != nil {
				ceiling = *f.Date.Max
			}
			return !d.Before(f.Date.Min) && !d.After(ceiling)
		},
	}
	numberBehavior = behavior{
		decode:  decodeNumber,
		restore: restoreNumber,
		blank:   func(time.Time) Value { return Number(0) },
		accept: func(f Field, v Value, _ time.Time) bool {
			return f.Number == nil || v.AsNumber() >= f.Number.Min
		},
	}
	yesNoBehavior = behavior{
		decode:  decodeYesNo,
		restore: restoreYesNo,
		blank:   func(time.Time) Value { return Bool(false) },
		accept:  func(Field, Value, time.Time) bool { return true },
	}
)

// behaviorOf is the single dispatch point from kind to behavior.
func behaviorOf(k Kind) behavior {
	switch k {
	case KindSelect:
		return selectBehavior
	case KindMultiSelect:
		return multiSelectBehavior
	case KindDate:
		return dateBehavior
	case KindNumber:
		return numberBehavior
	case KindYesNoDetail:
		return yesNoBehavior
	default:
		return textBehavior
	}
}

func decodeText(_ Field, raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case string:
		return Text(strings.TrimSpace(v)), true
	case float64:
		return Text(strconv.FormatFloat(v, 'f', -1, 64)), true
	case json.Number:
		return Text(v.String()), true
	case int:
		return Text(strconv.Itoa(v)), true
	}
	return Value{}, false
}

func decodeList(_ Field, raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case []string:
		return List(v), true
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return Value{}, false
			}
			items = append(items, s)
		}
		return List(items), true
	case string:
		if strings.TrimSpace(v) == "" {
			return List(nil), true
		}
		return List([]string{v}), true
	}
	return Value{}, false
}

var dateLayouts = []string{DateLayout, time.RFC3339, "02/01/2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func decodeDate(_ Field, raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case time.Time:
		return Date(v), true
	case string:
		if strings.TrimSpace(v) == "" {
			return Value{kind: ValueDate}, true
		}
		t, ok := parseDate(v)
		if !ok {
			return Value{}, false
		}
		return Date(t), true
	}
	return Value{}, false
}

func decodeNumber(_ Field, raw interface{}) (Value, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return Value{}, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(v, ",", ".", 1)), 64)
		if err != nil {
			return Value{}, false
		}
		f = parsed
	default:
		return Value{}, false
	}
	// Only finite numbers can be stored.
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, false
	}
	return Number(f), true
}

func decodeYesNo(_ Field, raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), true
	case string:
		return parseYesNo(v)
	}
	return Value{}, false
}

func parseYesNo(s string) (Value, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "s", "yes", "y", "true":
		return Bool(true), true
	case "não", "nao", "n", "no", "false", "":
		return Bool(false), true
	}
	return Value{}, false
}

func restoreList(_ Field, stored Value, _ time.Time) Value {
	switch stored.Kind() {
	case ValueList:
		return stored
	case ValueText:
		if stored.IsEmpty() {
			return List(nil)
		}
		return List([]string{stored.AsText()})
	}
	return List(nil)
}

func restoreDate(_ Field, stored Value, today time.Time) Value {
	switch stored.Kind() {
	case ValueDate:
		if !stored.IsEmpty() {
			return stored
		}
	case ValueText:
		if t, ok := parseDate(stored.AsText()); ok {
			return Date(t)
		}
	}
	return Date(today)
}

func restoreNumber(_ Field, stored Value, _ time.Time) Value {
	switch stored.Kind() {
	case ValueNumber:
		return stored
	case ValueText:
		if v, ok := decodeNumber(Field{}, stored.AsText()); ok {
			return v
		}
	}
	return Number(0)
}

func restoreYesNo(_ Field, stored Value, _ time.Time) Value {
	switch stored.Kind() {
	case ValueBool:
		return stored
	case ValueText:
		if v, ok := parseYesNo(stored.AsText()); ok {
			return v
		}
	}
	return Bool(false)
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
