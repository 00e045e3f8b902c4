package pgrecord

import (
	"encoding/json"
)

// jsonObject renders the value as a plain map, one key per declared field.
// This is the transport-friendly fallback used where the native composite
// wire format is unavailable (data export, fixtures, form round-trips).
func (v *CompositeValue) jsonObject() (map[string]any, error) {
	obj := make(map[string]any, len(v.spec.fields))
	for i, f := range v.spec.fields {
		jv, err := f.jsonValue(f.normalize(v.vals[i]))
		if err != nil {
			return nil, err
		}
		obj[f.Name] = jv
	}
	return obj, nil
}

// MarshalJSON encodes the value as {"field": <json value>, ...}, delegating
// each field's serialization to its own kind. Nested composites become
// nested objects; null fields become JSON null.
func (v *CompositeValue) MarshalJSON() ([]byte, error) {
	if v.null {
		return []byte("null"), nil
	}
	obj, err := v.jsonObject()
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// DecodeJSON parses the JSON interchange form of a composite value.
// Malformed JSON or a non-object fails with a validation error carrying
// code "bad_json". A key absent from the object decodes as null; each
// present value goes through its field's conversion, and conversion errors
// are prefixed with the field path so multi-field problems stay
// attributable.
func (s *TypeSpec) DecodeJSON(data []byte) (*CompositeValue, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &Error{
			Kind:    ErrKindValidation,
			Code:    "bad_json",
			Message: "value is not a valid JSON object",
			Cause:   err,
		}
	}

	v := s.newEmpty()
	for i, f := range s.fields {
		raw, ok := obj[f.Name]
		if !ok {
			// Absent keys are explicit nulls on the interchange path; the
			// nullability check below still applies.
			raw = []byte("null")
		}
		val, err := f.decodeJSONField(raw)
		if err != nil {
			return nil, fieldValidationError(f.Name, err)
		}
		v.vals[i] = val
	}
	return v, nil
}

// decodeJSONField converts one JSON value into the field's logical type.
func (f FieldSpec) decodeJSONField(raw json.RawMessage) (any, error) {
	if f.Kind == KindComposite {
		if string(raw) == "null" {
			return f.convert(nil)
		}
		return f.Elem.DecodeJSON(raw)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, validationErrorf("bad_json", "invalid JSON value")
	}
	return f.convert(generic)
}
