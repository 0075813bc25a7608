package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// ParseStructured decodes a model reply according to format and returns the
// decoded value. Replies wrapped in a Markdown code fence are accepted.
// Any decode or validation failure is reported as ErrValidation.
func ParseStructured(content string, format *ResponseFormat) (any, error) {
	if format == nil {
		return nil, nil
	}

	body := stripCodeFence(content)
	if body == "" {
		return nil, NewError(ErrValidation, "missing content", nil)
	}

	if format.Into == nil {
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, NewError(ErrValidation, "failed to parse JSON response", err)
		}
		return v, nil
	}

	if rv := reflect.ValueOf(format.Into); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("response format target must be a non-nil pointer, got %T", format.Into)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(format.Into); err != nil {
		return nil, NewError(ErrValidation, "failed to parse JSON response", err)
	}

	if reflect.Indirect(reflect.ValueOf(format.Into)).Kind() == reflect.Struct {
		if err := structValidator.Struct(format.Into); err != nil {
			return nil, NewError(ErrValidation, "response does not match schema", err)
		}
	}
	return format.Into, nil
}

// ContentText normalizes an envelope content field that may be either a JSON
// string or an already-decoded JSON value.
func ContentText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", NewError(ErrValidation, "missing content", nil)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", NewError(ErrValidation, "invalid content string", err)
		}
		if strings.TrimSpace(s) == "" {
			return "", NewError(ErrValidation, "missing content", nil)
		}
		return s, nil
	}
	return string(raw), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
