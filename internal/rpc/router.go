/**
 * @description
 * RPC procedure registry.
 * Procedures are named "namespace.procedure" and operate on decoded value
 * trees; input validation failures must surface as coded *Error values.
 *
 * @notes
 * - The registry is assembled once at startup and read-only afterwards, so
 *   lookups take no lock.
 */

package rpc

import (
	"context"
	"fmt"

	"github.com/polaris-starter/backend/internal/logger"
)

// Handler executes one procedure over a decoded input value
type Handler func(ctx context.Context, input interface{}) (interface{}, error)

// Router dispatches RPC calls to registered procedures
type Router struct {
	procedures map[string]Handler
}

// NewRouter creates an empty Router
func NewRouter() *Router {
	return &Router{procedures: make(map[string]Handler)}
}

// Register adds a procedure under "namespace.name"
func (r *Router) Register(name string, handler Handler) {
	if _, exists := r.procedures[name]; exists {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", name))
	}
	r.procedures[name] = handler
}

// Call executes the named procedure. Unknown names and handler panics are
// translated into coded errors; unexpected handler errors are logged and
// masked as internal.
func (r *Router) Call(ctx context.Context, name string, input interface{}) (result interface{}, err error) {
	handler, ok := r.procedures[name]
	if !ok {
		return nil, NotFound(fmt.Sprintf("no procedure named %q", name))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("rpc: procedure %s panicked: %v", name, recovered)
			result, err = nil, Internal()
		}
	}()

	result, err = handler(ctx, input)
	if err != nil {
		if _, coded := err.(*Error); !coded {
			logger.Error("rpc: procedure %s failed: %v", name, err)
			return nil, Internal()
		}
		return nil, err
	}
	return result, nil
}

// InputField extracts a required string field from an object input
func InputField(input interface{}, field string) (string, error) {
	object, ok := input.(map[string]interface{})
	if !ok {
		return "", BadRequest("input must be an object")
	}
	value, ok := object[field]
	if !ok {
		return "", BadRequest(fmt.Sprintf("input.%s is required", field))
	}
	text, ok := value.(string)
	if !ok {
		return "", BadRequest(fmt.Sprintf("input.%s must be a string", field))
	}
	return text, nil
}
