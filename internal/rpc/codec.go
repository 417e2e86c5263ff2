/**
 * @description
 * Structure-preserving RPC codec.
 * Plain JSON cannot carry timestamps or arbitrary-precision integers without
 * losing their type, so values cross the wire in an envelope: the plain JSON
 * tree plus a meta map recording which paths held a Date (time.Time) or a
 * bigint (*math/big.Int). Decoding revives the original types.
 *
 * Paths are dot-joined object keys and array indices; the root value uses
 * the empty path.
 */

package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	tagDate   = "Date"
	tagBigInt = "bigint"
)

// Envelope is the wire form of one RPC value
type Envelope struct {
	JSON json.RawMessage `json:"json"`
	Meta *Meta           `json:"meta,omitempty"`
}

// Meta records the typed paths inside the JSON tree
type Meta struct {
	Values map[string]string `json:"values,omitempty"`
}

// Encode wraps a value tree into an Envelope
func Encode(value interface{}) (Envelope, error) {
	values := map[string]string{}
	plain := lower(value, "", values)

	raw, err := json.Marshal(plain)
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{JSON: raw}
	if len(values) > 0 {
		env.Meta = &Meta{Values: values}
	}
	return env, nil
}

// Decode unwraps an Envelope back into a value tree with revived types
func Decode(env Envelope) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal(env.JSON, &value); err != nil {
		return nil, err
	}
	if env.Meta == nil {
		return value, nil
	}

	for path, tag := range env.Meta.Values {
		revived, err := reviveAt(value, path, tag)
		if err != nil {
			return nil, err
		}
		value = revived
	}
	return value, nil
}

// lower replaces typed leaves with their JSON representation, recording each
// replacement's path in values.
func lower(value interface{}, path string, values map[string]string) interface{} {
	switch v := value.(type) {
	case time.Time:
		values[path] = tagDate
		return v.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		values[path] = tagBigInt
		return v.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, child := range v {
			out[key] = lower(child, joinPath(path, key), values)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = lower(child, joinPath(path, strconv.Itoa(i)), values)
		}
		return out
	default:
		return v
	}
}

func reviveAt(value interface{}, path, tag string) (interface{}, error) {
	if path == "" {
		return revive(value, tag)
	}

	segments := strings.Split(path, ".")
	return reviveWalk(value, segments, tag)
}

func reviveWalk(value interface{}, segments []string, tag string) (interface{}, error) {
	if len(segments) == 0 {
		return revive(value, tag)
	}

	head, rest := segments[0], segments[1:]
	switch v := value.(type) {
	case map[string]interface{}:
		child, ok := v[head]
		if !ok {
			return nil, fmt.Errorf("codec: meta path %q missing from payload", head)
		}
		revived, err := reviveWalk(child, rest, tag)
		if err != nil {
			return nil, err
		}
		v[head] = revived
		return v, nil
	case []interface{}:
		index, err := strconv.Atoi(head)
		if err != nil || index < 0 || index >= len(v) {
			return nil, fmt.Errorf("codec: meta path %q is not a valid index", head)
		}
		revived, err := reviveWalk(v[index], rest, tag)
		if err != nil {
			return nil, err
		}
		v[index] = revived
		return v, nil
	default:
		return nil, fmt.Errorf("codec: meta path descends into non-container value")
	}
}

func revive(value interface{}, tag string) (interface{}, error) {
	raw, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("codec: tagged value is %T, expected string", value)
	}

	switch tag {
	case tagDate:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("codec: invalid Date %q: %w", raw, err)
		}
		return t, nil
	case tagBigInt:
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("codec: invalid bigint %q", raw)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("codec: unknown meta tag %q", tag)
	}
}

func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
