package forms

import (
	"strings"
	"time"
)

// ValidationError lists the labels of the fields that blocked a submission.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Labels returns every offending label, missing first.
func (e *ValidationError) Labels() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Invalid))
	out = append(out, e.Missing...)
	return append(out, e.Invalid...)
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// DetailLabel is the label reported when the detail of a yes answer is missing.
func DetailLabel(f Field) string {
	return "Detalhes de: " + f.Label
}

// Compose builds a document from submitted answers in form order. Absent
// answers for text and list fields become empty values so every field keeps
// its key; absent dates and numbers stay unset. A yes answer is followed by
// its detail key.
func (s *Schema) Compose(answers map[string]interface{}) (*Document, error) {
	doc := NewDocument()
	verr := &ValidationError{}

	for _, f := range s.Fields() {
		b := behaviorOf(f.Kind)
		raw, present := answers[f.Name]
		if !present || raw == nil {
			switch f.Kind {
			case KindDate, KindNumber:
			default:
				doc.Set(f.Name, b.blank(time.Time{}))
			}
			continue
		}
		v, ok := b.decode(f, raw)
		if !ok {
			verr.Invalid = append(verr.Invalid, f.Label)
			continue
		}
		doc.Set(f.Name, v)

		if f.Kind == KindYesNoDetail && v.AsBool() {
			detail, _ := decodeText(f, answers[DetailKey(f.Name)])
			if detail.Kind() == 0 {
				detail = Text("")
			}
			doc.Set(DetailKey(f.Name), detail)
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return doc, nil
}

// Validate checks required answers and field bounds, collecting every
// offending label. The detail of a yes answer is always required.
func (s *Schema) Validate(doc *Document, today time.Time) error {
	verr := &ValidationError{}
	for _, f := range s.Fields() {
		v, ok := doc.Get(f.Name)
		if !ok || v.IsEmpty() {
			if f.Required {
				verr.Missing = append(verr.Missing, f.Label)
			}
			continue
		}
		if !behaviorOf(f.Kind).accept(f, v, today) {
			verr.Invalid = append(verr.Invalid, f.Label)
			continue
		}
		if f.Kind == KindYesNoDetail && v.AsBool() {
			detail, ok := doc.Get(DetailKey(f.Name))
			if !ok || detail.IsEmpty() {
				verr.Missing = append(verr.Missing, DetailLabel(f))
			}
		}
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// Prefill turns a stored document back into typed form values. Every schema
// field gets a value: stored answers are converted to the field kind, dates
// that fail to parse fall back to today and absent answers take the kind's
// blank value. Keys unknown to the schema are dropped.
func (s *Schema) Prefill(stored *Document, today time.Time) *Document {
	out := NewDocument()
	for _, f := range s.Fields() {
		b := behaviorOf(f.Kind)
		v, ok := stored.Get(f.Name)
		if ok {
			v = b.restore(f, v, today)
		} else {
			v = b.blank(today)
		}
		out.Set(f.Name, v)

		if f.Kind == KindYesNoDetail && v.AsBool() {
			out.Set(DetailKey(f.Name), Text(stored.Text(DetailKey(f.Name))))
		}
	}
	return out
}

// Entry is one line of a rendered document.
type Entry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// NotInformed is shown for empty answers.
const NotInformed = "Não informado"

// Entries renders a stored document in its own key order, labelling keys
// from the schema when possible.
func (s *Schema) Entries(doc *Document) []Entry {
	entries := make([]Entry, 0, doc.Len())
	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)
		if f, ok := s.fieldFor(key); ok && f.Kind == KindDate && v.Kind() == ValueText {
			if t, ok := parseDate(v.AsText()); ok {
				v = Date(t)
			}
		}
		display := strings.TrimSpace(v.Display())
		if display == "" {
			display = NotInformed
		}
		entries = append(entries, Entry{Key: key, Label: s.labelFor(key), Value: display})
	}
	return entries
}

func (s *Schema) fieldFor(key string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	return s.Field(key)
}

func (s *Schema) labelFor(key string) string {
	if s != nil {
		if f, ok := s.Field(key); ok {
			return f.Label
		}
		if strings.HasSuffix(key, "_detalhe") {
			if f, ok := s.Field(strings.TrimSuffix(key, "_detalhe")); ok {
				return "Especifique (" + f.Label + ")"
			}
		}
	}
	return Prettify(key)
}
