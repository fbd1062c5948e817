package models

import (
	"database/sql/driver"
	"strings"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
)

// StringArray is a list of strings stored as a JSON text column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

// Scan accepts a JSON array, a JSON string or a bare comma separated value.
func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return errors.New("models.StringArray: Scan on nil pointer")
	}

	var raw string
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return errors.Errorf("models.StringArray: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = StringArray{}
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		*a = arr
		return nil
	}
	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		raw = single
	}

	out := StringArray{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*a = out
	return nil
}
