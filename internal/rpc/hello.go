package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// NewAppRouter assembles the application's RPC surface.
func NewAppRouter() *Router {
	router := NewRouter()

	router.Register("hello.hello", func(_ context.Context, input interface{}) (interface{}, error) {
		name, err := InputField(input, "name")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("Hello, %s!", name), nil
	})

	// Exercises the structure-preserving codec end to end: clients must get
	// back a real timestamp and an arbitrary-precision integer.
	router.Register("hello.now", func(_ context.Context, _ interface{}) (interface{}, error) {
		return map[string]interface{}{
			"now":   time.Now().UTC(),
			"nanos": new(big.Int).SetInt64(time.Now().UnixNano()),
		}, nil
	})

	return router
}
