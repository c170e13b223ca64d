package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// requestToken is the text frame that asks a server for its status summary.
const requestToken = "Accept: MOTD"

// sessionState tracks one probe connection through its lifecycle.
type sessionState uint8

const (
	stateConnecting sessionState = iota
	stateAwaiting
	stateCompleted
	stateFailed
	stateTimedOut
	stateClosed
)

// String implements fmt.Stringer.
func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAwaiting:
		return "awaiting"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timedout"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// allowedTransition encodes the session lifecycle: an outcome state is
// reached exactly once, afterwards only the move to closed is legal.
func allowedTransition(cur, next sessionState) bool {
	switch cur {
	case stateConnecting:
		return next == stateAwaiting || next == stateFailed || next == stateTimedOut
	case stateAwaiting:
		return next == stateCompleted || next == stateFailed || next == stateTimedOut
	case stateCompleted, stateFailed, stateTimedOut:
		return next == stateClosed
	default:
		return false
	}
}

// session owns one probe connection: dial, status request, inbound
// dispatch, outcome classification and the write-through to the cache.
// A session runs on a single goroutine and handles inbound messages in
// network delivery order.
type session struct {
	dialer  *websocket.Dialer
	cache   *Cache
	asm     *assembler
	log     zerolog.Logger
	target  string
	sentAt  time.Time
	timeout time.Duration
	state   sessionState
}

func newSession(target string, opts Options, timeout time.Duration, dialer *websocket.Dialer, cache *Cache) *session {
	logger := log.With().Str("target", target).Logger()

	return &session{
		dialer:  dialer,
		cache:   cache,
		asm:     newAssembler(opts.FetchIcon, logger),
		log:     logger,
		target:  target,
		timeout: timeout,
		state:   stateConnecting,
	}
}

// transition moves the session to next when the lifecycle permits it.
// A late transition attempt on a session that already reached its
// outcome is a silent no-op.
func (s *session) transition(next sessionState) bool {
	if !allowedTransition(s.state, next) {
		return false
	}

	s.log.Trace().Stringer("from", s.state).Stringer("to", next).Msg("Session transition")
	s.state = next

	return true
}

// run drives the probe to a terminal state and returns its outcome:
// either a snapshot or one of the typed probe errors.
func (s *session) run(ctx context.Context) (*Snapshot, error) {
	deadline := time.Now().Add(s.timeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(dialCtx, s.target, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		return s.fail(nil, err)
	}

	s.transition(stateAwaiting)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	s.sentAt = time.Now()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(requestToken)); err != nil {
		return s.fail(conn, err)
	}

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return s.finishRead(conn, err)
		}

		switch kind {
		case websocket.TextMessage:
			dec, derr := s.asm.onMetadata(payload, time.Now())
			switch dec {
			case decisionFatal:
				return s.fail(conn, &ProtocolError{Target: s.target, Err: derr})
			case decisionComplete:
				return s.complete(conn)
			}
		case websocket.BinaryMessage:
			if s.asm.onBinary(payload) == decisionComplete {
				return s.complete(conn)
			}
		}
	}
}

// finishRead resolves a failed read. A remote close after metadata was
// captured still completes the probe with what is held; a close before
// that is premature, everything else goes through the usual
// classification.
func (s *session) finishRead(conn *websocket.Conn, err error) (*Snapshot, error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if s.asm.hasMetadata() {
			s.log.Debug().Int("code", closeErr.Code).Msg("Remote closed early, completing with captured data")
			return s.complete(conn)
		}

		return s.fail(conn, &PrematureCloseError{Target: s.target, Code: closeErr.Code, Reason: closeErr.Text})
	}

	return s.fail(conn, err)
}

// complete finalizes a successful probe: stamp latency, write through to
// the cache and release the connection.
func (s *session) complete(conn *websocket.Conn) (*Snapshot, error) {
	s.transition(stateCompleted)
	s.close(conn)

	snap := s.asm.snapshot()
	snap.LatencyMs = time.Since(s.sentAt).Milliseconds()
	if s.cache != nil {
		s.cache.Put(s.target, snap)
	}

	s.log.Debug().
		Str("name", snap.Name).
		Int("online", snap.Online).
		Int("max", snap.Max).
		Int64("latency_ms", snap.LatencyMs).
		Msg("Probe completed")

	return snap, nil
}

// fail finalizes an unsuccessful probe, mapping err onto the error
// taxonomy. Already-typed errors pass through unchanged.
func (s *session) fail(conn *websocket.Conn, err error) (*Snapshot, error) {
	if isTimeout(err) {
		s.transition(stateTimedOut)
		s.close(conn)
		s.log.Debug().Msg("Probe timed out")

		return nil, &TimeoutError{Target: s.target, Timeout: s.timeout}
	}

	s.transition(stateFailed)
	s.close(conn)
	s.log.Debug().Err(err).Msg("Probe failed")

	switch err.(type) {
	case *ProtocolError, *PrematureCloseError:
		return nil, err
	}

	return nil, &TransportError{Target: s.target, Err: err}
}

// close releases the connection and parks the session in its final state.
func (s *session) close(conn *websocket.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
	s.transition(stateClosed)
}

// isTimeout reports whether err is a deadline-style failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
