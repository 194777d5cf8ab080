package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/aci-go/internal/core/domain"
)

// Command is the tag of a client request.
type Command string

const (
	CmdGetVal        Command = "get_val"
	CmdSetVal        Command = "set_val"
	CmdGetIndex      Command = "get_index"
	CmdSetIndex      Command = "set_index"
	CmdAppendIndex   Command = "append_index"
	CmdGetLen        Command = "get_len"
	CmdGetRecent     Command = "get_recent"
	CmdCreateDB      Command = "create_db"
	CmdWriteToDisk   Command = "write_to_disk"
	CmdReadFromDisk  Command = "read_from_disk"
	CmdListKeys      Command = "list_keys"
	CmdFederatedAuth Command = "federated_auth"
	CmdStaticAuth    Command = "static_auth"
	CmdEvent         Command = "event"
)

// Kind is the tag of a server message.
type Kind string

const (
	KindGetVal      Kind = "get_val_resp"
	KindSetVal      Kind = "set_val_resp"
	KindGetIndex    Kind = "get_index_resp"
	KindSetIndex    Kind = "set_index_resp"
	KindAppendIndex Kind = "append_index_resp"
	KindGetLen      Kind = "get_len_resp"
	KindGetRecent   Kind = "get_recent_resp"
	KindListKeys    Kind = "list_keys_resp"
	KindAuth        Kind = "auth_resp"
	KindEvent       Kind = "event"
	KindError       Kind = "error"
)

type commandSpec struct {
	resp     Kind // empty: no response
	needsDB  bool
	needsKey bool
}

var commands = map[Command]commandSpec{
	CmdGetVal:        {KindGetVal, true, true},
	CmdSetVal:        {KindSetVal, true, true},
	CmdGetIndex:      {KindGetIndex, true, true},
	CmdSetIndex:      {KindSetIndex, true, true},
	CmdAppendIndex:   {KindAppendIndex, true, true},
	CmdGetLen:        {KindGetLen, true, true},
	CmdGetRecent:     {KindGetRecent, true, true},
	CmdCreateDB:      {"", true, false},
	CmdWriteToDisk:   {"", false, false},
	CmdReadFromDisk:  {"", true, false},
	CmdListKeys:      {KindListKeys, true, false},
	CmdFederatedAuth: {KindAuth, false, false},
	CmdStaticAuth:    {KindAuth, false, false},
	CmdEvent:         {"", false, false},
}

// Known reports whether the server handles c.
func (c Command) Known() bool {
	_, ok := commands[c]
	return ok
}

// ResponseKind returns the kind answering c, or false when c gets no
// response.
func (c Command) ResponseKind() (Kind, bool) {
	spec, ok := commands[c]
	if !ok || spec.resp == "" {
		return "", false
	}
	return spec.resp, true
}

// AcceptsNoAck reports whether c may suppress its response with no_ack.
func (c Command) AcceptsNoAck() bool {
	switch c {
	case CmdSetVal, CmdSetIndex, CmdAppendIndex:
		return true
	}
	return false
}

// KeyScoped reports whether responses of kind k carry the key and
// database of their request.
func (k Kind) KeyScoped() bool {
	switch k {
	case KindGetVal, KindSetVal, KindGetIndex, KindSetIndex, KindAppendIndex, KindGetLen, KindGetRecent:
		return true
	}
	return false
}

// DatabaseScoped reports whether responses of kind k carry the database of
// their request.
func (k Kind) DatabaseScoped() bool {
	return k.KeyScoped() || k == KindListKeys
}

// Request is a client message.
type Request struct {
	Cmd         Command         `json:"cmd"`
	RequestID   string          `json:"request_id,omitempty"`
	Key         string          `json:"key,omitempty"`
	DB          string          `json:"db,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Index       json.RawMessage `json:"index,omitempty"`
	Num         json.RawMessage `json:"num,omitempty"`
	ID          string          `json:"id,omitempty"`
	Token       string          `json:"token,omitempty"`
	IDToken     string          `json:"id_token,omitempty"`
	EventID     string          `json:"event_id,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	NoAck       bool            `json:"no_ack,omitempty"`
}

// Validate checks that the fields c needs are present.
func (r *Request) Validate() error {
	spec, ok := commands[r.Cmd]
	if !ok {
		return domain.ErrUnknownCommand.WithDetails(string(r.Cmd))
	}
	if spec.needsDB && r.DB == "" {
		return domain.ErrMalformedRequest.WithDetails("db is required")
	}
	if spec.needsKey && r.Key == "" {
		return domain.ErrMalformedRequest.WithDetails("key is required")
	}
	switch r.Cmd {
	case CmdEvent:
		if r.Destination == "" || r.EventID == "" {
			return domain.ErrMalformedRequest.WithDetails("event needs destination and event_id")
		}
	case CmdGetIndex, CmdSetIndex:
		if len(r.Index) == 0 {
			return domain.ErrMalformedRequest.WithDetails("index is required")
		}
	case CmdGetRecent:
		if len(r.Num) == 0 {
			return domain.ErrMalformedRequest.WithDetails("num is required")
		}
	}
	return nil
}

// Count decodes Num as a single non-negative integer.
func (r *Request) Count() (int, error) {
	n, err := domain.ParseIndices(r.Num)
	if err != nil {
		return 0, err
	}
	if len(n) != 1 {
		return 0, domain.ErrMalformedRequest.WithDetails("num must be a single integer")
	}
	return n[0], nil
}

// Expects returns the kind the server will answer r with, or false when
// no answer will come.
func (r *Request) Expects() (Kind, bool) {
	if r.NoAck && r.Cmd.AcceptsNoAck() {
		return "", false
	}
	return r.Cmd.ResponseKind()
}

// ErrorBody is the error part of a Response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorBody converts err for the wire. Errors that are not
// DomainErrors are reported as ErrInternal without their text.
func NewErrorBody(err error) *ErrorBody {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternal
	}
	return &ErrorBody{Code: de.Code, Message: de.Message, Details: de.Details}
}

// Err rebuilds the DomainError carried by the body.
func (e *ErrorBody) Err() error {
	if e == nil {
		return nil
	}
	de := domain.ErrorFromCode(e.Code, e.Details)
	if de.Message == "" {
		de.Message = e.Message
	}
	return de
}

// Response is a server message.
type Response struct {
	Kind      Kind            `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Key       string          `json:"key,omitempty"`
	DB        string          `json:"db,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ReplyTo creates the response skeleton for req with kind k.
func ReplyTo(req *Request, k Kind) *Response {
	resp := &Response{Kind: k, RequestID: req.RequestID}
	if k.DatabaseScoped() {
		resp.DB = req.DB
	}
	if k.KeyScoped() {
		resp.Key = req.Key
	}
	return resp
}

// SetValue marshals v into the Value field.
func (r *Response) SetValue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode value: %w", err)
	}
	r.Value = data
	return nil
}

// Fail attaches err to the response.
func (r *Response) Fail(err error) *Response {
	r.Error = NewErrorBody(err)
	r.Message = r.Error.Message
	return r
}

// Err returns the error carried by the response, or nil.
func (r *Response) Err() error {
	return r.Error.Err()
}

// SetMessage renders the set_val summary "db[key] = value".
func SetMessage(db, key string, value any) string {
	var rendered string
	switch v := value.(type) {
	case string:
		rendered = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			rendered = fmt.Sprint(v)
		} else {
			rendered = string(data)
		}
	}
	return db + "[" + key + "] = " + rendered
}
