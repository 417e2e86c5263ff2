package rpc

import (
	"math/big"
	"testing"
	"time"
)

func TestEncodeDecodeDate(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	env, err := Encode(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if env.Meta == nil || env.Meta.Values[""] != "Date" {
		t.Fatalf("expected root Date tag, got %+v", env.Meta)
	}

	got, err := Decode(env)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", got)
	}
	if !ts.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ts)
	}
}

func TestEncodeDecodeBigInt(t *testing.T) {
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	env, err := Encode(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := Decode(env)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	n, ok := got.(*big.Int)
	if !ok {
		t.Fatalf("expected *big.Int, got %T", got)
	}
	if n.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, n)
	}
}

func TestEncodeDecodeNestedPaths(t *testing.T) {
	stamp := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)
	value := map[string]interface{}{
		"label": "checkpoint",
		"at":    stamp,
		"entries": []interface{}{
			map[string]interface{}{
				"count": new(big.Int).SetInt64(42),
				"seen":  stamp,
			},
			"plain string",
		},
	}

	env, err := Encode(value)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(env)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	tree, ok := decoded.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object root, got %T", decoded)
	}
	if tree["label"] != "checkpoint" {
		t.Fatalf("plain string mangled: %v", tree["label"])
	}
	at, ok := tree["at"].(time.Time)
	if !ok || !at.Equal(stamp) {
		t.Fatalf("expected revived time at .at, got %T %v", tree["at"], tree["at"])
	}

	entries, ok := tree["entries"].([]interface{})
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", tree["entries"])
	}
	entry, ok := entries[0].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object entry, got %T", entries[0])
	}
	count, ok := entry["count"].(*big.Int)
	if !ok || count.Int64() != 42 {
		t.Fatalf("expected revived bigint, got %T %v", entry["count"], entry["count"])
	}
	seen, ok := entry["seen"].(time.Time)
	if !ok || !seen.Equal(stamp) {
		t.Fatalf("expected revived time in array, got %T", entry["seen"])
	}
	if entries[1] != "plain string" {
		t.Fatalf("untagged array element mangled: %v", entries[1])
	}
}

func TestDecodeWithoutMeta(t *testing.T) {
	env, err := Encode(map[string]interface{}{"name": "Ada"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if env.Meta != nil {
		t.Fatalf("expected no meta for plain values, got %+v", env.Meta)
	}

	decoded, err := Decode(env)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	tree := decoded.(map[string]interface{})
	if tree["name"] != "Ada" {
		t.Fatalf("unexpected decode: %v", decoded)
	}
}

func TestDecodeRejectsBadMeta(t *testing.T) {
	env, err := Encode(map[string]interface{}{"name": "Ada"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	env.Meta = &Meta{Values: map[string]string{"missing.path": "Date"}}

	if _, err := Decode(env); err == nil {
		t.Fatal("expected error for meta path missing from payload")
	}
}
