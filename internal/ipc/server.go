package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	// maxRequestBytes bounds one request line; utterances are short.
	maxRequestBytes = 16 * 1024
	readTimeout     = 5 * time.Second
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close. Each connection carries exactly one request line.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			serveConn(ctx, c, handler)
		}(conn)
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	enc := json.NewEncoder(conn)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	req, err := readRequest(conn)
	if err != nil {
		_ = enc.Encode(Response{OK: false, Error: err.Error()})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	_ = enc.Encode(handler.Handle(ctx, req))
}

func readRequest(r io.Reader) (Request, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	if len(line) > maxRequestBytes {
		return Request{}, fmt.Errorf("read request: exceeds %d bytes", maxRequestBytes)
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return Request{}, fmt.Errorf("read request: %w", err)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Command == "" {
		return Request{}, errors.New("decode request: missing command")
	}
	return req, nil
}
