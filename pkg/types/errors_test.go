package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMcpErrorCode(t *testing.T) {
	for _, c := range []int{RPCParseError, RPCInvalidRequest, RPCMethodNotFound, RPCInvalidParams, RPCInternalError, RPCServerError} {
		assert.True(t, IsMcpErrorCode(c))
	}
	assert.False(t, IsMcpErrorCode(-1))
	assert.False(t, IsMcpErrorCode(0))
}

func TestMcpErrorToJsonRpc(t *testing.T) {
	e := &McpError{Code: RPCInvalidParams, Message: "bad params", Data: map[string]string{"field": "streamId"}}
	assert.Equal(t, "bad params", e.Error())

	wire := e.ToJsonRpc()
	assert.Equal(t, RPCInvalidParams, wire.Code)
	assert.Equal(t, "bad params", wire.Message)
	assert.Equal(t, map[string]string{"field": "streamId"}, wire.Data)
}
