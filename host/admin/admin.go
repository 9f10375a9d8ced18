// Package admin talks to the firmware console over a serial line.
package admin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const prompt = "> "

var ErrTimeout = errors.New("admin: timed out waiting for prompt")

// RemoteError is an "error: <code>" reply from the console.
type RemoteError struct{ Code string }

func (e *RemoteError) Error() string { return "console error: " + e.Code }

type Client struct {
	rw      io.ReadWriter
	closer  io.Closer
	timeout time.Duration
	buf     []byte
}

// Open opens the serial port. Reads poll every 100 ms.
func Open(name string, baud int, timeout time.Duration) (*Client, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	c := NewClient(p, timeout)
	c.closer = p
	return c, nil
}

// NewClient wraps an open stream. A read returning no data means the line
// is idle.
func NewClient(rw io.ReadWriter, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{rw: rw, timeout: timeout, buf: make([]byte, 0, 256)}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Sync sends an empty line and discards everything up to the resulting
// prompt, including boot output and stale prompts.
func (c *Client) Sync() error {
	if _, err := c.rw.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if _, err := c.readReply(); err != nil {
		return err
	}
	return nil
}

// Command runs one console command and returns its reply without the
// trailing newline and prompt.
func (c *Client) Command(line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", fmt.Errorf("command contains a line break")
	}
	if _, err := c.rw.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	reply, err := c.readReply()
	if err != nil {
		return "", err
	}
	if code, ok := strings.CutPrefix(reply, "error: "); ok {
		return reply, &RemoteError{Code: code}
	}
	return reply, nil
}

// Owner queries the current owner.
func (c *Client) Owner() (string, error) { return c.Command("owner") }

// ResetOwner clears the owner whitelist.
func (c *Client) ResetOwner() (string, error) { return c.Command("owner reset") }

// readReply reads until the prompt is seen and the line goes idle.
func (c *Client) readReply() (string, error) {
	c.buf = c.buf[:0]
	deadline := time.Now().Add(c.timeout)
	var chunk [128]byte
	for {
		n, err := c.rw.Read(chunk[:])
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read: %w", err)
		}
		if n == 0 && bytes.HasSuffix(c.buf, []byte(prompt)) {
			break
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	reply := c.buf[:len(c.buf)-len(prompt)]
	// Only the text after the last-but-one prompt belongs to this command.
	if i := bytes.LastIndex(reply, []byte(prompt)); i >= 0 {
		reply = reply[i+len(prompt):]
	}
	return strings.TrimRight(string(reply), "\r\n"), nil
}
