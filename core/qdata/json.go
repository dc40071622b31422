package qdata

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Decode parses a JSON document into a Value. Numbers keep their source text.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding question data")
	}
	return FromInterface(raw)
}

// DecodeMapping is Decode for documents whose root must be an object.
func DecodeMapping(data []byte) (Mapping, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case Mapping:
		return t, nil
	case Null:
		return Mapping{}, nil
	default:
		return nil, errors.Errorf("question data must be an object, got %T", v)
	}
}

func Encode(v Value) ([]byte, error) {
	b, err := json.Marshal(ToInterface(v))
	return b, errors.Wrap(err, "encoding question data")
}

// FromInterface converts the generic tree produced by encoding/json (decoded with
// UseNumber) into a Value. Other Go numeric kinds are accepted for convenience in
// tests and fixtures.
func FromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case int:
		return Number(strconv.Itoa(t)), nil
	case int64:
		return Number(strconv.FormatInt(t, 10)), nil
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case []interface{}:
		out := make(Sequence, len(t))
		for i, child := range t {
			v, err := FromInterface(child)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]interface{}:
		out := make(Mapping, len(t))
		for k, child := range t {
			v, err := FromInterface(child)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported question data value %T", raw)
	}
}

// ToInterface is the inverse of FromInterface; numbers come back as json.Number.
func ToInterface(v Value) interface{} {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return json.Number(t)
	case Bool:
		return bool(t)
	case Sequence:
		out := make([]interface{}, len(t))
		for i, child := range t {
			out[i] = ToInterface(child)
		}
		return out
	case Mapping:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[k] = ToInterface(child)
		}
		return out
	default:
		return nil
	}
}

func (m Mapping) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(ToInterface(m))
}

func (m *Mapping) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeMapping(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// Value implements driver.Valuer so a Mapping can be written to a jsonb column.
func (m Mapping) Value() (driver.Value, error) {
	return m.MarshalJSON()
}

// Scan implements sql.Scanner.
func (m *Mapping) Scan(src interface{}) error {
	switch t := src.(type) {
	case nil:
		*m = Mapping{}
		return nil
	case []byte:
		return m.UnmarshalJSON(t)
	case string:
		return m.UnmarshalJSON([]byte(t))
	default:
		return errors.Errorf("cannot scan %T into question data", src)
	}
}
