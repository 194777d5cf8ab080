package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/protocol"
)

// Database is a handle on one server-side database.
type Database struct {
	c    *Client
	name string
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

func (d *Database) request(cmd protocol.Command, key string) *protocol.Request {
	return &protocol.Request{Cmd: cmd, DB: d.name, Key: key}
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("client: encode value: %w", err)
	}
	return data, nil
}

func decode[T any](resp *protocol.Response) (T, error) {
	var out T
	if len(resp.Value) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Value, &out); err != nil {
		return out, fmt.Errorf("client: decode %s: %w", resp.Kind, err)
	}
	return out, nil
}

// Get returns the value of key.
func (d *Database) Get(ctx context.Context, key string) (any, error) {
	resp, err := d.c.roundTrip(ctx, d.request(protocol.CmdGetVal, key))
	if err != nil {
		return nil, err
	}
	return decode[any](resp)
}

// GetInto decodes the value of key into dst.
func (d *Database) GetInto(ctx context.Context, key string, dst any) error {
	resp, err := d.c.roundTrip(ctx, d.request(protocol.CmdGetVal, key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Value, dst); err != nil {
		return fmt.Errorf("client: decode %s: %w", key, err)
	}
	return nil
}

// Set replaces the value of key, creating the item when absent, and
// returns the server summary "db[key] = value".
func (d *Database) Set(ctx context.Context, key string, value any) (string, error) {
	req := d.request(protocol.CmdSetVal, key)
	var err error
	if req.Value, err = marshal(value); err != nil {
		return "", err
	}
	resp, err := d.c.roundTrip(ctx, req)
	if resp == nil {
		return "", err
	}
	return resp.Message, err
}

// SetNoAck sends a set without waiting for, or receiving, an answer.
func (d *Database) SetNoAck(ctx context.Context, key string, value any) error {
	req := d.request(protocol.CmdSetVal, key)
	var err error
	if req.Value, err = marshal(value); err != nil {
		return err
	}
	req.NoAck = true
	return d.c.send(ctx, req)
}

// GetIndex returns the list elements of key at indices, keyed by index.
func (d *Database) GetIndex(ctx context.Context, key string, indices ...int) (map[int]any, error) {
	req := d.request(protocol.CmdGetIndex, key)
	var err error
	if req.Index, err = marshal(indices); err != nil {
		return nil, err
	}
	resp, err := d.c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := decode[map[string]any](resp)
	if err != nil {
		return nil, err
	}
	out := make(map[int]any, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("client: decode index %q: %w", k, err)
		}
		out[idx] = v
	}
	return out, nil
}

func (d *Database) setIndexRequest(key string, values map[int]any) (*protocol.Request, error) {
	if len(values) == 0 {
		return nil, errors.New("client: no index values")
	}
	indices := make([]int, 0, len(values))
	byIndex := make(map[string]any, len(values))
	for idx, v := range values {
		indices = append(indices, idx)
		byIndex[strconv.Itoa(idx)] = v
	}
	req := d.request(protocol.CmdSetIndex, key)
	var err error
	if req.Index, err = marshal(indices); err != nil {
		return nil, err
	}
	if req.Value, err = marshal(byIndex); err != nil {
		return nil, err
	}
	return req, nil
}

// SetIndex assigns list elements of key. Either every index is applied or
// none is.
func (d *Database) SetIndex(ctx context.Context, key string, values map[int]any) error {
	req, err := d.setIndexRequest(key, values)
	if err != nil {
		return err
	}
	_, err = d.c.roundTrip(ctx, req)
	return err
}

// SetIndexNoAck is SetIndex without an answer.
func (d *Database) SetIndexNoAck(ctx context.Context, key string, values map[int]any) error {
	req, err := d.setIndexRequest(key, values)
	if err != nil {
		return err
	}
	req.NoAck = true
	return d.c.send(ctx, req)
}

func (d *Database) appendRequest(key string, values []any) (*protocol.Request, error) {
	if len(values) == 0 {
		return nil, domain.ErrMalformedRequest.WithDetails("no values to append")
	}
	req := d.request(protocol.CmdAppendIndex, key)
	var err error
	if req.Value, err = marshal(values); err != nil {
		return nil, err
	}
	return req, nil
}

// AppendIndex appends values to the list of key.
func (d *Database) AppendIndex(ctx context.Context, key string, values ...any) error {
	req, err := d.appendRequest(key, values)
	if err != nil {
		return err
	}
	_, err = d.c.roundTrip(ctx, req)
	return err
}

// AppendIndexNoAck is AppendIndex without an answer.
func (d *Database) AppendIndexNoAck(ctx context.Context, key string, values ...any) error {
	req, err := d.appendRequest(key, values)
	if err != nil {
		return err
	}
	req.NoAck = true
	return d.c.send(ctx, req)
}

// Len returns the length of the list of key.
func (d *Database) Len(ctx context.Context, key string) (int, error) {
	resp, err := d.c.roundTrip(ctx, d.request(protocol.CmdGetLen, key))
	if err != nil {
		return 0, err
	}
	return decode[int](resp)
}

// Recent returns the last n elements of the list of key in order.
func (d *Database) Recent(ctx context.Context, key string, n int) ([]any, error) {
	req := d.request(protocol.CmdGetRecent, key)
	var err error
	if req.Num, err = marshal(n); err != nil {
		return nil, err
	}
	resp, err := d.c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	return decode[[]any](resp)
}

// ListKeys returns the item keys of the database.
func (d *Database) ListKeys(ctx context.Context) ([]string, error) {
	resp, err := d.c.roundTrip(ctx, d.request(protocol.CmdListKeys, ""))
	if err != nil {
		return nil, err
	}
	return decode[[]string](resp)
}

// WriteToDisk persists the database.
func (d *Database) WriteToDisk(ctx context.Context) error {
	return d.c.confirm(ctx, d.request(protocol.CmdWriteToDisk, ""))
}

// ReadFromDisk reloads the database from disk.
func (d *Database) ReadFromDisk(ctx context.Context) error {
	return d.c.confirm(ctx, d.request(protocol.CmdReadFromDisk, ""))
}
