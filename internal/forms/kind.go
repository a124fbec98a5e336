package forms

import (
	"fmt"
	"strings"
)

// Kind tags the input type of an intake field.
type Kind string

const (
	KindText        Kind = "text"
	KindTextarea    Kind = "textarea"
	KindDate        Kind = "date"
	KindNumber      Kind = "number"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	// KindYesNoDetail is a yes/no answer whose "yes" branch asks for one
	// extra free-text detail stored under DetailKey(name).
	KindYesNoDetail Kind = "yes_no_detail"
)

// kindAliases maps the tags used by older schema files onto the current kinds.
var kindAliases = map[string]Kind{
	"selectbox":         KindSelect,
	"radio_com_detalhe": KindYesNoDetail,
	"text_area":         KindTextarea,
	"multi_select":      KindMultiSelect,
}

// ParseKind resolves a schema type tag.
func ParseKind(raw string) (Kind, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch k := Kind(tag); k {
	case KindText, KindTextarea, KindDate, KindNumber, KindSelect, KindMultiSelect, KindYesNoDetail:
		return k, nil
	}
	if k, ok := kindAliases[tag]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown field type %q", raw)
}

// DetailKey is the document key holding the detail of a yes/no field.
func DetailKey(name string) string {
	return name + "_detalhe"
}
