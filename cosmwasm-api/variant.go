package cosmwasmapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNoVariant        = errors.New("no variant set")
	ErrMultipleVariants = errors.New("more than one variant set")
)

// ValidateVariant checks that a tagged message has exactly one variant set. A tagged
// message is a struct whose exported fields are all pointers, one per variant. Values
// of any other shape are accepted as is.
func ValidateVariant(v interface{}) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return errors.New("nil message")
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.New("nil message")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	var set []string
	fields := 0
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil
		}
		fields++
		if !rv.Field(i).IsNil() {
			set = append(set, variantName(field))
		}
	}

	switch {
	case fields == 0:
		return nil
	case len(set) == 0:
		return fmt.Errorf("%s: %w", rt.Name(), ErrNoVariant)
	case len(set) > 1:
		return fmt.Errorf("%s: %w: %s", rt.Name(), ErrMultipleVariants, strings.Join(set, ", "))
	}
	return nil
}

func variantName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

var errorResponseKinds = map[string]struct{}{
	"err":            {},
	"generic_err":    {},
	"unauthorized":   {},
	"not_found":      {},
	"parse_err":      {},
	"serialize_err":  {},
	"invalid_utf8":   {},
	"invalid_base64": {},

	"viewing_key_error": {},
}

// ErrorResponse is an error a contract returned as the body of a successful query.
type ErrorResponse struct {
	Kind string
	Msg  string
}

func (e *ErrorResponse) Error() string {
	if e.Msg == "" {
		return e.Kind
	}
	return e.Kind + ": " + e.Msg
}

// ParseErrorResponse reports whether data is an object with a single error key such as
// {"generic_err":{"msg":"..."}}.
func ParseErrorResponse(data []byte) (*ErrorResponse, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) != 1 {
		return nil, false
	}

	for kind, body := range obj {
		if _, ok := errorResponseKinds[kind]; !ok {
			return nil, false
		}
		return &ErrorResponse{Kind: kind, Msg: errorMessage(body)}, true
	}
	return nil, false
}

func errorMessage(body json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(body, &msg); err == nil {
		return msg
	}
	var withMsg struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &withMsg); err == nil {
		switch {
		case withMsg.Msg != "":
			return withMsg.Msg
		case withMsg.Error != "":
			return withMsg.Error
		}
	}
	return string(body)
}
