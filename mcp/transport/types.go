package transport

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// JSONRPCVersion is the only protocol version accepted on the wire
const JSONRPCVersion = "2.0"

// RequestId is the JSON-RPC request identifier, an integer or a string.
// The zero value is the null id. RequestId is comparable and can be a map key.
type RequestId struct {
	num   int64
	str   string
	isStr bool
	valid bool
}

// NumberID returns the integer id
func NumberID(n int64) RequestId {
	return RequestId{num: n, valid: true}
}

// StringID returns the string id
func StringID(s string) RequestId {
	return RequestId{str: s, isStr: true, valid: true}
}

// IsNull returns true for the null id
func (id RequestId) IsNull() bool {
	return !id.valid
}

func (id RequestId) String() string {
	switch {
	case !id.valid:
		return "null"
	case id.isStr:
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON writes the id as a JSON number, string or null
func (id RequestId) MarshalJSON() ([]byte, error) {
	switch {
	case !id.valid:
		return []byte("null"), nil
	case id.isStr:
		return json.Marshal(id.str)
	}
	return strconv.AppendInt(nil, id.num, 10), nil
}

// UnmarshalJSON accepts an integer, a string or null
func (id *RequestId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case string(data) == "null":
		*id = RequestId{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "invalid id")
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errors.Errorf("invalid id: %s, expected integer or string", data)
	}
	*id = NumberID(n)
	return nil
}

// JsonRpcBody is the result of a request handler, marshaled into the response
type JsonRpcBody any

// BaseJSONRPCRequest is a request that expects a response
type BaseJSONRPCRequest struct {
	Id      RequestId       `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON requires the id, jsonrpc and method fields to be present
func (m *BaseJSONRPCRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range []string{"id", "jsonrpc", "method"} {
		if _, ok := raw[field]; !ok {
			return errors.Errorf("field %s in BaseJSONRPCRequest: required", field)
		}
	}
	type plain BaseJSONRPCRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Id.IsNull() {
		return errors.New("field id in BaseJSONRPCRequest: must not be null")
	}
	*m = BaseJSONRPCRequest(p)
	return nil
}

// BaseJSONRPCNotification is a one-way message without id
type BaseJSONRPCNotification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON requires jsonrpc and method, and rejects messages with id
func (m *BaseJSONRPCNotification) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range []string{"jsonrpc", "method"} {
		if _, ok := raw[field]; !ok {
			return errors.Errorf("field %s in BaseJSONRPCNotification: required", field)
		}
	}
	if _, ok := raw["id"]; ok {
		return errors.New("field id in BaseJSONRPCNotification: not allowed")
	}
	type plain BaseJSONRPCNotification
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = BaseJSONRPCNotification(p)
	return nil
}

// BaseJSONRPCResponse is a successful response
type BaseJSONRPCResponse struct {
	Id      RequestId       `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
}

// UnmarshalJSON requires the id, jsonrpc and result fields to be present
func (m *BaseJSONRPCResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range []string{"id", "jsonrpc", "result"} {
		if _, ok := raw[field]; !ok {
			return errors.Errorf("field %s in BaseJSONRPCResponse: required", field)
		}
	}
	type plain BaseJSONRPCResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = BaseJSONRPCResponse(p)
	return nil
}

// BaseJSONRPCErrorInner is the error object of an error response
type BaseJSONRPCErrorInner struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// BaseJSONRPCError is an error response
type BaseJSONRPCError struct {
	Error   BaseJSONRPCErrorInner `json:"error"`
	Id      RequestId             `json:"id"`
	Jsonrpc string                `json:"jsonrpc"`
}

// UnmarshalJSON requires the error, id and jsonrpc fields to be present
func (m *BaseJSONRPCError) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range []string{"error", "id", "jsonrpc"} {
		if _, ok := raw[field]; !ok {
			return errors.Errorf("field %s in BaseJSONRPCError: required", field)
		}
	}
	type plain BaseJSONRPCError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = BaseJSONRPCError(p)
	return nil
}

// BaseMessageType specifies the kind of message in the envelope
type BaseMessageType string

const (
	BaseMessageTypeJSONRPCRequestType      BaseMessageType = "request"
	BaseMessageTypeJSONRPCNotificationType BaseMessageType = "notification"
	BaseMessageTypeJSONRPCResponseType     BaseMessageType = "response"
	BaseMessageTypeJSONRPCErrorType        BaseMessageType = "error"
)

// BaseJsonRpcMessage is the envelope passed between a transport and the protocol
type BaseJsonRpcMessage struct {
	Type                BaseMessageType
	JsonRpcRequest      *BaseJSONRPCRequest
	JsonRpcNotification *BaseJSONRPCNotification
	JsonRpcResponse     *BaseJSONRPCResponse
	JsonRpcError        *BaseJSONRPCError
}

// MarshalJSON marshals the wrapped message
func (m *BaseJsonRpcMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return json.Marshal(m.JsonRpcRequest)
	case BaseMessageTypeJSONRPCNotificationType:
		return json.Marshal(m.JsonRpcNotification)
	case BaseMessageTypeJSONRPCResponseType:
		return json.Marshal(m.JsonRpcResponse)
	case BaseMessageTypeJSONRPCErrorType:
		return json.Marshal(m.JsonRpcError)
	default:
		return nil, errors.Errorf("unknown message type: %q", m.Type)
	}
}

// MessageID returns the id of a request, response or error message,
// and the null id for notifications
func (m *BaseJsonRpcMessage) MessageID() RequestId {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Id
	case BaseMessageTypeJSONRPCResponseType:
		return m.JsonRpcResponse.Id
	case BaseMessageTypeJSONRPCErrorType:
		return m.JsonRpcError.Id
	}
	return RequestId{}
}

// SetMessageID replaces the id of a request, response or error message
func (m *BaseJsonRpcMessage) SetMessageID(id RequestId) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		m.JsonRpcRequest.Id = id
	case BaseMessageTypeJSONRPCResponseType:
		m.JsonRpcResponse.Id = id
	case BaseMessageTypeJSONRPCErrorType:
		m.JsonRpcError.Id = id
	}
}

func NewBaseMessageRequest(request *BaseJSONRPCRequest) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:           BaseMessageTypeJSONRPCRequestType,
		JsonRpcRequest: request,
	}
}

func NewBaseMessageNotification(notification *BaseJSONRPCNotification) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:                BaseMessageTypeJSONRPCNotificationType,
		JsonRpcNotification: notification,
	}
}

func NewBaseMessageResponse(response *BaseJSONRPCResponse) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:            BaseMessageTypeJSONRPCResponseType,
		JsonRpcResponse: response,
	}
}

func NewBaseMessageError(response *BaseJSONRPCError) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:         BaseMessageTypeJSONRPCErrorType,
		JsonRpcError: response,
	}
}

// ParseMessage decodes a single JSON-RPC message,
// trying request, notification, response and error shapes in that order
func ParseMessage(body []byte) (*BaseJsonRpcMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.Mark(errors.New("empty message"), ErrParse)
	}
	if !json.Valid(body) {
		return nil, errors.Mark(errors.New("invalid JSON"), ErrParse)
	}

	var request BaseJSONRPCRequest
	if err := json.Unmarshal(body, &request); err == nil {
		return NewBaseMessageRequest(&request), nil
	}

	var notification BaseJSONRPCNotification
	if err := json.Unmarshal(body, &notification); err == nil {
		return NewBaseMessageNotification(&notification), nil
	}

	var response BaseJSONRPCResponse
	if err := json.Unmarshal(body, &response); err == nil {
		return NewBaseMessageResponse(&response), nil
	}

	var errorResponse BaseJSONRPCError
	if err := json.Unmarshal(body, &errorResponse); err == nil {
		return NewBaseMessageError(&errorResponse), nil
	}

	return nil, errors.Mark(errors.Mark(errors.New("unrecognized JSON-RPC message"), ErrParse), ErrInvalidRequest)
}

// NewParseErrorMessage returns the error response to a message rejected by ParseMessage:
// -32700 for malformed JSON, and -32600 for JSON that is not a valid message.
// The id is echoed when the body carries a valid one, and is null otherwise.
func NewParseErrorMessage(body []byte, err error) *BaseJsonRpcMessage {
	inner := BaseJSONRPCErrorInner{
		Code:    ErrorCodeParse,
		Message: "parse error",
	}
	var id RequestId
	if errors.Is(err, ErrInvalidRequest) {
		inner = BaseJSONRPCErrorInner{
			Code:    ErrorCodeInvalidRequest,
			Message: "invalid request",
		}
		var envelope struct {
			Id json.RawMessage `json:"id"`
		}
		if json.Unmarshal(body, &envelope) == nil && len(envelope.Id) > 0 {
			_ = id.UnmarshalJSON(envelope.Id)
		}
	}
	return NewBaseMessageError(&BaseJSONRPCError{
		Jsonrpc: JSONRPCVersion,
		Id:      id,
		Error:   inner,
	})
}
