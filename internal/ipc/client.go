package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// maxResponseBytes bounds one response line. A full catalog fits easily.
const maxResponseBytes = 1 << 20

// Send performs one request/response exchange with the owner at path. The
// whole exchange, dial included, must finish within timeout.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, fmt.Errorf("set deadline: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return Response{}, fmt.Errorf("write request: %w", err)
	}

	line, err := bufio.NewReader(io.LimitReader(conn, maxResponseBytes)).ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Call sends one intent, with its utterance if any. ErrNoOwner means nobody
// is listening on path.
func Call(ctx context.Context, path, command, text string, timeout time.Duration) (Response, error) {
	resp, err := Send(ctx, path, Request{Command: command, Text: text}, timeout)
	if noListener(err) {
		return Response{}, fmt.Errorf("%w: %s", ErrNoOwner, path)
	}
	return resp, err
}

// Probe reports whether an owner answers a status request on path. A
// missing or refused socket is a clean "no"; anything else is an error.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case noListener(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}

func noListener(err error) bool {
	return err != nil && (errors.Is(err, os.ErrNotExist) || errors.Is(err, unix.ECONNREFUSED))
}
