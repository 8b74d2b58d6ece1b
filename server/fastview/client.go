package fastview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	pingResolution = time.Millisecond * 500
	// By definition, it encompasses the number of pings to tolerate losing before
	// concluding the peer is gone.
	pongWait = pingResolution * 6
)

var upgrader = websocket.Upgrader{}

// Client is a bidirectional websocket peer: it publishes Out items to the page as
// JSON and decodes the page's JSON messages into In items. Out items should be
// idempotent updates, such that only the latest one is needed to specify the page state.
type Client[Out any, In any] struct {
	ws     *websock
	inputs chan In
	pongs  chan struct{}
	logger *log.Logger
}

// NewClient upgrades the request to a websocket.
func NewClient[Out any, In any](
	w http.ResponseWriter,
	r *http.Request,
	logger *log.Logger,
) (*Client[Out, In], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the peer.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	if logger == nil {
		logger = log.Default()
	}
	cli := &Client[Out, In]{
		ws:     NewWebSocket(ws),
		inputs: make(chan In),
		pongs:  make(chan struct{}, 1),
		logger: logger,
	}
	// The handler runs on the reading goroutine, so it is installed before any reads start.
	ws.SetPongHandler(func(_ string) error {
		select {
		case cli.pongs <- struct{}{}:
		default:
		}
		return nil
	})
	return cli, nil
}

// Inputs returns the messages received from the page. It is closed when reading stops.
func (cli *Client[Out, In]) Inputs() <-chan In {
	return cli.inputs
}

// Sync runs the read, ping-pong and publish routines until the peer leaves, ctx is
// cancelled, or updates is closed.
// Sync returns nil upon client disconnect or an error if an unexpected error occurred.
func (cli *Client[Out, In]) Sync(ctx context.Context, updates <-chan Out) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	// The first routine to finish, with or without error, ends the others.
	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx, updates)
	})

	return group.Wait()
}

// Close sends a close message and closes the websocket. It must be called after Sync returns.
func (cli *Client[Out, In]) Close() {
	cli.ws.Close()
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This function requires that readMessages is running to ensure the pong handler is called.
func (cli *Client[Out, In]) pingPong(ctx context.Context) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-cli.pongs:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[Out, In]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if isError(err) {
					err = fmt.Errorf("ping failed: %T %v", err, err)
				}
			}
			return
		})
}

// readMessages decodes messages from the page onto the inputs chan.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown. A message that fails to decode is logged and dropped.
func (cli *Client[Out, In]) readMessages(ctx context.Context) error {
	defer close(cli.inputs)

	// ReadMessage does not observe ctx, so expire the read on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = cli.ws.Conn().SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	for {
		var data []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, data, readErr = ws.ReadMessage()
				return
			})
		if ctx.Err() != nil || isClosure(err) {
			return nil
		}
		if err != nil {
			if isError(err) {
				return fmt.Errorf("read failed: %w", err)
			}
			return nil
		}

		var msg In
		if err := json.Unmarshal(data, &msg); err != nil {
			cli.logger.Printf("fastview: dropping malformed message: %v", err)
			continue
		}

		select {
		case cli.inputs <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (cli *Client[Out, In]) publish(ctx context.Context, updates <-chan Out) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			// Graceful input channel closure
			if !ok {
				return nil
			}

			err := cli.ws.Write(
				ctx,
				func(ws *websocket.Conn) (writeErr error) {
					if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
						writeErr = fmt.Errorf("failed to set deadline: %T %w", writeErr, writeErr)
						return
					}

					if writeErr = ws.WriteJSON(update); writeErr != nil {
						if isError(writeErr) {
							writeErr = fmt.Errorf("publish failed: %T %v", writeErr, writeErr)
						}
					}
					return
				})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline    = time.Second
	closeGracePeriod = 250 * time.Millisecond
)

// websock merely serializes reads and writes to the websocket, whose requirements
// are that there may be only one concurrent read and writer at a time.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used for setup (e.g. adding handlers) and for deadlines.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Closes the websocket. This should only be called once no further read/writers exist.
func (sock *websock) Close() {
	sock.readSem <- struct{}{}
	sock.writeSem <- struct{}{}

	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket.
// There is a single reader, so the read itself is not bounded by a deadline.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
