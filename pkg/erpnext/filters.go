package erpnext

import "encoding/json"

const (
	OpEquals    = "="
	OpNotEquals = "!="
	OpIn        = "in"
)

// Filter is one structured filter triple sent to the resource API. The ERP
// expects the owning doctype repeated in every clause.
type Filter struct {
	Doctype  string
	Field    string
	Operator string
	Value    any
}

// MarshalJSON renders the wire form [doctype, field, operator, value].
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Doctype, f.Field, f.Operator, f.Value})
}

func Eq(doctype, field string, value any) Filter {
	return Filter{Doctype: doctype, Field: field, Operator: OpEquals, Value: value}
}

func Ne(doctype, field string, value any) Filter {
	return Filter{Doctype: doctype, Field: field, Operator: OpNotEquals, Value: value}
}

func In(doctype, field string, value any) Filter {
	return Filter{Doctype: doctype, Field: field, Operator: OpIn, Value: value}
}
