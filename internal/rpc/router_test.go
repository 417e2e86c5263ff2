package rpc

import (
	"context"
	"errors"
	"testing"
)

func TestHelloProcedure(t *testing.T) {
	router := NewAppRouter()

	result, err := router.Call(context.Background(), "hello.hello", map[string]interface{}{"name": "Ada"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result != "Hello, Ada!" {
		t.Fatalf("expected greeting, got %v", result)
	}
}

func TestHelloRejectsNonStringName(t *testing.T) {
	router := NewAppRouter()

	_, err := router.Call(context.Background(), "hello.hello", map[string]interface{}{"name": float64(123)})
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestHelloRejectsMissingName(t *testing.T) {
	router := NewAppRouter()

	for _, input := range []interface{}{map[string]interface{}{}, "just a string", nil} {
		_, err := router.Call(context.Background(), "hello.hello", input)
		var rpcErr *Error
		if !errors.As(err, &rpcErr) || rpcErr.Code != CodeBadRequest {
			t.Fatalf("input %v: expected BAD_REQUEST, got %v", input, err)
		}
	}
}

func TestUnknownProcedure(t *testing.T) {
	router := NewAppRouter()

	_, err := router.Call(context.Background(), "hello.goodbye", nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUncodedErrorMaskedAsInternal(t *testing.T) {
	router := NewRouter()
	router.Register("boom.fail", func(context.Context, interface{}) (interface{}, error) {
		return nil, errors.New("database exploded: credentials abc")
	})

	_, err := router.Call(context.Background(), "boom.fail", nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_SERVER_ERROR, got %v", err)
	}
	if rpcErr.Message != "internal server error" {
		t.Fatalf("internal error leaked details: %q", rpcErr.Message)
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	router := NewRouter()
	router.Register("boom.panic", func(context.Context, interface{}) (interface{}, error) {
		panic("unexpected")
	})

	_, err := router.Call(context.Background(), "boom.panic", nil)
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_SERVER_ERROR after panic, got %v", err)
	}
}
