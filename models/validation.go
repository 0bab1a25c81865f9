package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

const NonFieldErrors = "non_field_errors"

type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// ValidationError keeps field errors in the order the server (or the local
// checker) reported them, so the first one can be shown to the customer.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+strings.Join(f.Messages, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Add(field string, messages ...string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Messages: messages})
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// FirstMessage returns the first message of the first field that has one.
func (e *ValidationError) FirstMessage() (field string, message string, ok bool) {
	for _, f := range e.Fields {
		if len(f.Messages) > 0 {
			return f.Field, f.Messages[0], true
		}
	}
	return "", "", false
}

// ParseValidationError reads a DRF-style error body. Top level object keys
// become fields in document order; nested lists and objects are flattened to
// their string leaves. Any other shape is reported under NonFieldErrors.
func ParseValidationError(body []byte) *ValidationError {
	ve := &ValidationError{}
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return ve
	}
	delim, isDelim := tok.(json.Delim)
	if !isDelim || delim != '{' {
		dec = json.NewDecoder(bytes.NewReader(body))
		msgs, err := collectStrings(dec)
		if err == nil && len(msgs) > 0 {
			ve.Add(NonFieldErrors, msgs...)
		}
		return ve
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return ve
		}
		key, _ := keyTok.(string)
		msgs, err := collectStrings(dec)
		if err != nil {
			return ve
		}
		if len(msgs) > 0 {
			ve.Add(key, msgs...)
		}
	}
	return ve
}

func collectStrings(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case string:
		return []string{v}, nil
	case json.Delim:
		var out []string
		isObject := v == '{'
		for dec.More() {
			if isObject {
				if _, err := dec.Token(); err != nil {
					return nil, err
				}
			}
			s, err := collectStrings(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, nil
	}
}
