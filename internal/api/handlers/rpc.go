/**
 * @description
 * RPC transport handler.
 * Dispatches HTTP calls to the procedure registry. Supports single calls and
 * batches (comma-joined procedure names with indexed inputs), with payloads
 * wrapped in the structure-preserving codec envelope.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/rpc
 */

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/polaris-starter/backend/internal/rpc"
)

// RPCHandler bridges HTTP and the procedure registry
type RPCHandler struct {
	router *rpc.Router
}

// NewRPCHandler creates a new RPCHandler
func NewRPCHandler(router *rpc.Router) *RPCHandler {
	return &RPCHandler{router: router}
}

// rpcResult frames one procedure outcome on the wire
type rpcResult struct {
	Result *rpcData  `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcData struct {
	Data rpc.Envelope `json:"data"`
}

type rpcError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus"`
}

// Call executes one procedure, or a batch when ?batch=1
// GET|POST /api/v1/rpc/:procs  (input in ?input= or the request body)
func (h *RPCHandler) Call(c *fiber.Ctx) error {
	names := strings.Split(c.Params("procs"), ",")
	batch := c.Query("batch") == "1"

	if !batch && len(names) != 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Multiple procedures require batch=1"})
	}

	inputs, err := h.parseInputs(c, names, batch)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	results := make([]rpcResult, len(names))
	for i, name := range names {
		results[i] = h.execute(c.Context(), name, inputs[i])
	}

	if !batch {
		result := results[0]
		if result.Error != nil {
			return c.Status(result.Error.HTTPStatus).JSON(result)
		}
		return c.Status(fiber.StatusOK).JSON(result)
	}

	// Batch responses are always 200; per-call failures ride inside
	return c.Status(fiber.StatusOK).JSON(results)
}

func (h *RPCHandler) execute(ctx context.Context, name string, input interface{}) rpcResult {
	value, err := h.router.Call(ctx, name, input)
	if err != nil {
		var coded *rpc.Error
		if !errors.As(err, &coded) {
			coded = rpc.Internal()
		}
		return rpcResult{Error: &rpcError{
			Code:       coded.Code,
			Message:    coded.Message,
			HTTPStatus: rpc.HTTPStatus(coded.Code),
		}}
	}

	env, err := rpc.Encode(value)
	if err != nil {
		internal := rpc.Internal()
		return rpcResult{Error: &rpcError{
			Code:       internal.Code,
			Message:    internal.Message,
			HTTPStatus: rpc.HTTPStatus(internal.Code),
		}}
	}
	return rpcResult{Result: &rpcData{Data: env}}
}

// parseInputs decodes the call inputs: a single envelope, or an index-keyed
// object of envelopes for batches. An absent input means nil for every call.
func (h *RPCHandler) parseInputs(c *fiber.Ctx, names []string, batch bool) ([]interface{}, error) {
	raw := []byte(c.Query("input"))
	if len(raw) == 0 {
		raw = c.Body()
	}

	inputs := make([]interface{}, len(names))
	if len(raw) == 0 {
		return inputs, nil
	}

	if !batch {
		var env rpc.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, errors.New("input must be a codec envelope")
		}
		value, err := rpc.Decode(env)
		if err != nil {
			return nil, err
		}
		inputs[0] = value
		return inputs, nil
	}

	var indexed map[string]rpc.Envelope
	if err := json.Unmarshal(raw, &indexed); err != nil {
		return nil, errors.New("batch input must be an index-keyed object of envelopes")
	}
	for key, env := range indexed {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(names) {
			return nil, errors.New("batch input key " + key + " does not match a procedure")
		}
		value, err := rpc.Decode(env)
		if err != nil {
			return nil, err
		}
		inputs[index] = value
	}
	return inputs, nil
}
