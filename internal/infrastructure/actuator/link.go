// Package actuator owns the physical connection to the feeder device and
// exposes its command/acknowledgment protocol with timeout, retry and
// reconnect handling.
package actuator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/useCases"
)

// Failure taxonomy. Timeout, LinkDown, Busy and Protocol are retryable at the
// item level; InvalidMotor is a programming/config defect upstream and is not.
var (
	ErrTimeout      = errors.New("actuator: ack timeout")
	ErrLinkDown     = errors.New("actuator: link down")
	ErrBusy         = errors.New("actuator: command already in flight")
	ErrProtocol     = errors.New("actuator: protocol error")
	ErrInvalidMotor = errors.New("actuator: invalid motor index")
)

// IsRetryable reports whether the dispatch queue may retry the command.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrLinkDown) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrProtocol)
}

// Config holds actuator link settings.
type Config struct {
	Addr           string
	DialTimeout    time.Duration
	StartTimeout   time.Duration // MOTOR -> ACK:START
	RunTimeout     time.Duration // ACK:START -> ACK:STOP, covers the physical cycle
	PingInterval   time.Duration
	PingTimeout    time.Duration
	MaxMissedPings int
	ReconnectBase  time.Duration
	ReconnectMax   time.Duration
	MotorCount     int
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = 2 * time.Second
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = 15 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.MaxMissedPings == 0 {
		c.MaxMissedPings = 3
	}
	if c.ReconnectBase == 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = 30 * time.Second
	}
	if c.MotorCount == 0 {
		c.MotorCount = 5
	}
	return c
}

// Link is the single process-lifetime connection to the feeder. Its state is
// mutated only by the link's own control loop and command path; callers
// interact through SendCommand and State.
type Link struct {
	cfg Config
	log *slog.Logger

	mu           sync.Mutex
	state        model.LinkState
	conn         net.Conn
	backoffUntil time.Time

	writeMu sync.Mutex

	resp chan Message
	pong chan struct{}
}

var _ useCases.ActuatorLink = (*Link)(nil)

// NewLink creates a link in the Disconnected state. Run must be started for
// the link to connect.
func NewLink(cfg Config, log *slog.Logger) *Link {
	return &Link{
		cfg:   cfg.withDefaults(),
		log:   log,
		state: model.LinkDisconnected,
		resp:  make(chan Message, 4),
		pong:  make(chan struct{}, 1),
	}
}

// State returns the current link state.
func (l *Link) State() model.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// BackoffUntil reports when the next reconnect attempt is due while Faulted.
func (l *Link) BackoffUntil() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoffUntil
}

// SendCommand triggers one motor and blocks until the device acknowledges
// start and stop, or a stage timeout elapses. Exactly one command may be in
// flight; concurrent callers get ErrBusy immediately instead of blocking.
func (l *Link) SendCommand(ctx context.Context, motorIndex int) error {
	if motorIndex < 0 || motorIndex >= l.cfg.MotorCount {
		return fmt.Errorf("%w: %d", ErrInvalidMotor, motorIndex)
	}

	l.mu.Lock()
	if l.state != model.LinkReady {
		state := l.state
		l.mu.Unlock()
		if state == model.LinkBusy {
			return ErrBusy
		}
		return fmt.Errorf("%w: link is %s", ErrLinkDown, state)
	}
	l.state = model.LinkBusy
	conn := l.conn
	l.mu.Unlock()
	defer l.releaseBusy(conn)

	// Stale acks from a timed-out predecessor must not satisfy this command.
	l.drainResponses()

	if err := l.writeLine(conn, MotorCommand(motorIndex)); err != nil {
		conn.Close()
		return fmt.Errorf("%w: write failed: %v", ErrLinkDown, err)
	}

	wantID := motorIndex + 1
	if err := l.awaitAck(ctx, MsgAckStart, wantID, l.cfg.StartTimeout); err != nil {
		return err
	}
	return l.awaitAck(ctx, MsgAckStop, wantID, l.cfg.RunTimeout)
}

func (l *Link) awaitAck(ctx context.Context, want MessageKind, motorID int, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: no %s within %s", ErrTimeout, want, timeout)
	case msg := <-l.resp:
		switch msg.Kind {
		case MsgErrInvalidMotor:
			return fmt.Errorf("%w: device rejected motor id %d", ErrInvalidMotor, motorID)
		case MsgErrUnknownCommand:
			return fmt.Errorf("%w: device reported unknown command %q", ErrProtocol, msg.Text)
		case want:
			if msg.Motor != motorID {
				return fmt.Errorf("%w: %s for motor %d, want %d", ErrProtocol, want, msg.Motor, motorID)
			}
			return nil
		default:
			return fmt.Errorf("%w: unexpected %s while waiting for %s", ErrProtocol, msg.Kind, want)
		}
	}
}

func (l *Link) releaseBusy(conn net.Conn) {
	l.mu.Lock()
	if l.state == model.LinkBusy && l.conn == conn {
		l.state = model.LinkReady
	}
	l.mu.Unlock()
}

func (l *Link) drainResponses() {
	for {
		select {
		case <-l.resp:
		default:
			return
		}
	}
}

func (l *Link) writeLine(conn net.Conn, line string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(l.cfg.StartTimeout))
	_, err := fmt.Fprintf(conn, "%s\n", line)
	return err
}

// Run owns the connection lifecycle: dial, READY handshake, reader, health
// probing and reconnection with exponential backoff. It returns when ctx is
// cancelled.
func (l *Link) Run(ctx context.Context) error {
	backoff := l.cfg.ReconnectBase
	for ctx.Err() == nil {
		l.setState(model.LinkConnecting)
		dialer := net.Dialer{Timeout: l.cfg.DialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", l.cfg.Addr)
		if err == nil {
			reached, serveErr := l.serve(ctx, conn)
			conn.Close()
			l.detach(conn)
			if ctx.Err() != nil {
				break
			}
			if reached {
				backoff = l.cfg.ReconnectBase
			}
			l.log.Warn("actuator link lost", "addr", l.cfg.Addr, "error", serveErr)
		} else {
			l.log.Warn("actuator dial failed", "addr", l.cfg.Addr, "error", err)
		}

		wait := withJitter(backoff)
		l.fault(time.Now().Add(wait))
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		backoff *= 2
		if backoff > l.cfg.ReconnectMax {
			backoff = l.cfg.ReconnectMax
		}
	}
	l.setState(model.LinkDisconnected)
	return ctx.Err()
}

// serve performs the READY handshake and then pumps device lines until the
// connection fails or ctx is cancelled. The bool reports whether the link
// reached Ready, which resets the reconnect backoff.
func (l *Link) serve(ctx context.Context, conn net.Conn) (bool, error) {
	reader := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(l.cfg.StartTimeout))
	banner, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("waiting for READY: %w", err)
	}
	msg, err := ParseLine(strings.TrimSuffix(banner, "\n"))
	if err != nil || msg.Kind != MsgReady {
		return false, fmt.Errorf("unexpected banner %q", strings.TrimSpace(banner))
	}
	_ = conn.SetReadDeadline(time.Time{})

	l.attach(conn)

	readErr := make(chan error, 1)
	go l.readLoop(reader, readErr)

	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()
	missed := 0

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			<-readErr
			return true, ctx.Err()
		case err := <-readErr:
			return true, err
		case <-ticker.C:
			// A command in flight proves the device is responsive.
			if l.State() == model.LinkBusy {
				missed = 0
				continue
			}
			if l.probe(conn) {
				missed = 0
				continue
			}
			missed++
			if missed >= l.cfg.MaxMissedPings {
				conn.Close()
				<-readErr
				return true, fmt.Errorf("no response to %d consecutive health probes", missed)
			}
		}
	}
}

func (l *Link) readLoop(reader *bufio.Reader, readErr chan<- error) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			readErr <- err
			return
		}
		msg, perr := ParseLine(strings.TrimSuffix(line, "\n"))
		if perr != nil {
			// Malformed lines may indicate a firmware mismatch; log them
			// distinctly but keep the connection.
			l.log.Warn("actuator protocol error", "error", perr)
			continue
		}
		switch msg.Kind {
		case MsgPong:
			select {
			case l.pong <- struct{}{}:
			default:
			}
		case MsgReady:
			// Mid-stream READY means the device reset and lost motor state.
			readErr <- fmt.Errorf("device reset detected")
			return
		default:
			select {
			case l.resp <- msg:
			default:
				l.log.Warn("dropping unconsumed device message", "kind", msg.Kind.String())
			}
		}
	}
}

// probe runs one PING/PONG exchange out of band from the command path.
func (l *Link) probe(conn net.Conn) bool {
	select {
	case <-l.pong:
	default:
	}
	if err := l.writeLine(conn, "PING"); err != nil {
		return false
	}
	select {
	case <-l.pong:
		return true
	case <-time.After(l.cfg.PingTimeout):
		return false
	}
}

func (l *Link) attach(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.state = model.LinkReady
	l.backoffUntil = time.Time{}
	l.mu.Unlock()
	l.log.Info("actuator link ready", "addr", l.cfg.Addr)
}

func (l *Link) detach(conn net.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
		if l.state == model.LinkReady || l.state == model.LinkBusy {
			l.state = model.LinkDisconnected
		}
	}
	l.mu.Unlock()
}

func (l *Link) setState(state model.LinkState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *Link) fault(until time.Time) {
	l.mu.Lock()
	l.state = model.LinkFaulted
	l.backoffUntil = until
	l.mu.Unlock()
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}
