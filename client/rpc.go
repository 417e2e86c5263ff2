/**
 * @description
 * Typed RPC surface of the client facade.
 * Calls ride the structure-preserving codec envelope, so timestamps and
 * arbitrary-precision integers survive the round trip with their types.
 * Failures carry the server's machine-readable code.
 *
 * @dependencies
 * - backend/internal/rpc: shared codec and error codes
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/polaris-starter/backend/internal/rpc"
)

// RPCError is a coded procedure failure
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	return e.Code + ": " + e.Message
}

// CallProcedure invokes one named procedure with a value-tree input and
// returns the decoded value-tree result.
func (c *Client) CallProcedure(ctx context.Context, name string, input interface{}) (interface{}, error) {
	var reader io.Reader
	if input != nil {
		env, err := rpc.Encode(input)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/rpc/"+name, reader)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Result *struct {
			Data rpc.Envelope `json:"data"`
		} `json:"result"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed rpc response: %w", err)
	}

	if result.Error != nil {
		return nil, &RPCError{Code: result.Error.Code, Message: result.Error.Message}
	}
	if result.Result == nil {
		return nil, fmt.Errorf("rpc response carried neither result nor error")
	}
	return rpc.Decode(result.Result.Data)
}

// Hello calls hello.hello, the example procedure
func (c *Client) Hello(ctx context.Context, name string) (string, error) {
	result, err := c.CallProcedure(ctx, "hello.hello", map[string]interface{}{"name": name})
	if err != nil {
		return "", err
	}
	greeting, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("hello.hello returned %T, expected string", result)
	}
	return greeting, nil
}

// HelloNow calls hello.now and returns the server clock with full types
func (c *Client) HelloNow(ctx context.Context) (time.Time, *big.Int, error) {
	result, err := c.CallProcedure(ctx, "hello.now", nil)
	if err != nil {
		return time.Time{}, nil, err
	}
	tree, ok := result.(map[string]interface{})
	if !ok {
		return time.Time{}, nil, fmt.Errorf("hello.now returned %T, expected object", result)
	}
	now, ok := tree["now"].(time.Time)
	if !ok {
		return time.Time{}, nil, fmt.Errorf("hello.now .now is %T, expected time.Time", tree["now"])
	}
	nanos, ok := tree["nanos"].(*big.Int)
	if !ok {
		return time.Time{}, nil, fmt.Errorf("hello.now .nanos is %T, expected *big.Int", tree["nanos"])
	}
	return now, nanos, nil
}
