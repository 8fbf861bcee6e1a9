package adapter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// builtins returns the adapters every new registry starts with.
func builtins() []Adapter {
	return []Adapter{
		UUID(),
		JSONOf[map[string]any](),
		JSONOf[[]any](),
	}
}

// UUID adapts uuid.UUID to its canonical string form.
func UUID() Adapter {
	return Adapter{
		GoType: "uuid.UUID",
		DBType: "uuid",
		ToDatabase: func(v any) (any, error) {
			id, ok := v.(uuid.UUID)
			if !ok {
				return nil, fmt.Errorf("adapter: expected uuid.UUID, got %T", v)
			}
			return id.String(), nil
		},
		FromDatabase: func(v any) (any, error) {
			switch v := v.(type) {
			case string:
				return uuid.Parse(v)
			case []byte:
				return uuid.ParseBytes(v)
			default:
				return nil, fmt.Errorf("adapter: cannot decode %T as uuid", v)
			}
		},
	}
}

// JSONOf adapts values of type T to a JSON text column.
func JSONOf[T any]() Adapter {
	return Adapter{
		GoType: goTypeOf[T](),
		DBType: "json",
		ToDatabase: func(v any) (any, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		},
		FromDatabase: func(v any) (any, error) {
			var out T
			if err := json.Unmarshal(rawBytes(v), &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// MsgpackOf adapts values of type T to a MessagePack BLOB column.
func MsgpackOf[T any]() Adapter {
	return Adapter{
		GoType: goTypeOf[T](),
		DBType: "blob",
		ToDatabase: func(v any) (any, error) {
			return msgpack.Marshal(v)
		},
		FromDatabase: func(v any) (any, error) {
			var out T
			if err := msgpack.Unmarshal(rawBytes(v), &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// YAMLOf adapts values of type T to a YAML text column.
func YAMLOf[T any]() Adapter {
	return Adapter{
		GoType: goTypeOf[T](),
		DBType: "yaml",
		ToDatabase: func(v any) (any, error) {
			b, err := yaml.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		},
		FromDatabase: func(v any) (any, error) {
			var out T
			if err := yaml.Unmarshal(rawBytes(v), &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// BoolAsInt adapts bool to an integer column, for backends without a native
// boolean type. Register it explicitly; by default bool passes through.
func BoolAsInt() Adapter {
	return Adapter{
		GoType: "bool",
		DBType: "integer",
		ToDatabase: func(v any) (any, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("adapter: expected bool, got %T", v)
			}
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		},
		FromDatabase: func(v any) (any, error) {
			switch v := v.(type) {
			case int64:
				return v != 0, nil
			case bool:
				return v, nil
			default:
				return nil, fmt.Errorf("adapter: cannot decode %T as bool", v)
			}
		},
	}
}

// TimeString adapts time.Time to an RFC 3339 text column, for backends
// without a native timestamp type. Register it explicitly; by default
// time.Time passes through to the driver.
func TimeString() Adapter {
	return Adapter{
		GoType: "time.Time",
		DBType: "text",
		ToDatabase: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("adapter: expected time.Time, got %T", v)
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		},
		FromDatabase: func(v any) (any, error) {
			switch v := v.(type) {
			case string:
				return time.Parse(time.RFC3339Nano, v)
			case []byte:
				return time.Parse(time.RFC3339Nano, string(v))
			case time.Time:
				return v, nil
			default:
				return nil, fmt.Errorf("adapter: cannot decode %T as time", v)
			}
		},
	}
}

func goTypeOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func rawBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
