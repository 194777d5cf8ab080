package wsserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/protocol"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// serve runs the session loop: read, dispatch, answer, until the
// connection fails or ctx ends.
func (s *Server) serve(ctx context.Context, sess *Session) error {
	ctx = logger.WithLogger(ctx, s.logger)
	ctx = logger.WithSessionID(ctx, sess.ID())
	for {
		req, err := sess.read(ctx)
		if err != nil {
			return err
		}
		resp := s.handle(ctx, sess, req)
		if resp == nil {
			continue
		}
		if err := sess.write(ctx, resp); err != nil {
			return err
		}
	}
}

// handle dispatches one request and returns the message to send back, or
// nil when the command is unanswered and succeeded.
func (s *Server) handle(ctx context.Context, sess *Session, req *protocol.Request) *protocol.Response {
	start := time.Now()
	if req.RequestID != "" {
		ctx = logger.WithRequestID(ctx, req.RequestID)
	}

	kind, answer := req.Expects()
	label := string(req.Cmd)
	if !req.Cmd.Known() {
		kind, answer, label = protocol.KindError, true, "unknown"
	}

	var (
		resp *protocol.Response
		err  error
	)
	if !sess.allow() {
		err = domain.ErrRateLimited
	} else if err = req.Validate(); err == nil {
		resp, err = s.dispatch(ctx, sess, req, kind)
	}

	result := "ok"
	if err != nil {
		result = domain.GetErrorCode(err)
		if result == "" {
			result = domain.ErrInternal.Code
			logger.L(ctx).Error("command failed", "cmd", req.Cmd, "error", err)
		} else {
			logger.L(ctx).Debug("command rejected", "cmd", req.Cmd, "db", req.DB, "key", req.Key, "error", err)
		}
	}
	s.metrics.RecordRequest(label, result, time.Since(start).Seconds())

	if !answer {
		// Unanswered commands stay silent unless they fail and the caller
		// gave a request id to report against.
		if err == nil || req.RequestID == "" {
			return nil
		}
		return protocol.ReplyTo(req, protocol.KindError).Fail(err)
	}
	if resp == nil {
		resp = protocol.ReplyTo(req, kind)
	}
	if err != nil {
		resp.Fail(err)
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, sess *Session, req *protocol.Request, kind protocol.Kind) (*protocol.Response, error) {
	id := sess.Identity()
	resp := protocol.ReplyTo(req, kind)

	switch req.Cmd {
	case protocol.CmdGetVal:
		v, err := s.store.Get(ctx, req.DB, req.Key, id)
		if err != nil {
			return resp, err
		}
		return resp, resp.SetValue(v)

	case protocol.CmdSetVal:
		value, err := decodeValue(req.Value)
		if err != nil {
			return resp, err
		}
		applied, err := s.store.Set(ctx, req.DB, req.Key, value, id)
		if applied != nil || err == nil {
			resp.Message = protocol.SetMessage(req.DB, req.Key, applied)
			if encErr := resp.SetValue(applied); encErr != nil && err == nil {
				err = encErr
			}
		}
		return resp, err

	case protocol.CmdGetIndex:
		indices, err := domain.ParseIndices(req.Index)
		if err != nil {
			return resp, err
		}
		values, err := s.store.GetIndex(ctx, req.DB, req.Key, indices, id)
		if err != nil {
			return resp, err
		}
		return resp, resp.SetValue(values)

	case protocol.CmdSetIndex:
		indices, err := domain.ParseIndices(req.Index)
		if err != nil {
			return resp, err
		}
		values, err := domain.ParseIndexValues(indices, req.Value)
		if err != nil {
			return resp, err
		}
		if err := s.store.SetIndex(ctx, req.DB, req.Key, indices, values, id); err != nil {
			return resp, err
		}
		resp.Message = statusSuccess
		return resp, nil

	case protocol.CmdAppendIndex:
		values, err := domain.ParseAppendValues(req.Value)
		if err != nil {
			return resp, err
		}
		if err := s.store.AppendIndex(ctx, req.DB, req.Key, values, id); err != nil {
			return resp, err
		}
		resp.Message = statusSuccess
		return resp, nil

	case protocol.CmdGetLen:
		n, err := s.store.Len(ctx, req.DB, req.Key, id)
		if err != nil {
			return resp, err
		}
		return resp, resp.SetValue(n)

	case protocol.CmdGetRecent:
		n, err := req.Count()
		if err != nil {
			return resp, err
		}
		values, err := s.store.Recent(ctx, req.DB, req.Key, n, id)
		if err != nil {
			return resp, err
		}
		return resp, resp.SetValue(values)

	case protocol.CmdListKeys:
		keys, err := s.store.ListKeys(ctx, req.DB)
		if err != nil {
			return resp, err
		}
		return resp, resp.SetValue(keys)

	case protocol.CmdCreateDB:
		return nil, s.store.CreateDatabase(ctx, req.DB)

	case protocol.CmdWriteToDisk:
		return nil, s.store.WriteToDisk(ctx, req.DB)

	case protocol.CmdReadFromDisk:
		return nil, s.store.ReadFromDisk(ctx, req.DB)

	case protocol.CmdStaticAuth:
		ident, err := s.auth.Static(ctx, req.ID, req.Token)
		return s.finishAuth(ctx, sess, resp, ident, err)

	case protocol.CmdFederatedAuth:
		ident, err := s.auth.Federated(ctx, req.IDToken)
		return s.finishAuth(ctx, sess, resp, ident, err)

	case protocol.CmdEvent:
		s.SendEvent(ctx, req.Destination, req.EventID, req.Payload, id.Principal)
		return nil, nil

	default:
		return resp, domain.ErrUnknownCommand.WithDetails(string(req.Cmd))
	}
}

// statusSuccess is the message of successful index mutations and
// authentications.
const statusSuccess = "success"

// finishAuth binds a successful identity to the session. A failed attempt
// leaves the previous identity in place.
func (s *Server) finishAuth(ctx context.Context, sess *Session, resp *protocol.Response, ident domain.Identity, err error) (*protocol.Response, error) {
	if err != nil {
		return resp, err
	}
	rec := sess.bind(ident)
	s.metrics.RecordAuthentication(string(ident.Kind))
	logger.L(ctx).Info("session authenticated", "identity", ident.String())
	resp.Message = statusSuccess
	return resp, resp.SetValue(rec)
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, domain.ErrMalformedRequest.WithDetails("value is required")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, domain.ErrMalformedRequest.WithCause(err)
	}
	return v, nil
}
