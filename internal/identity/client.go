// Package identity talks to the external face-identity service: a websocket
// server that receives a face crop as a JPEG data URL and answers with the
// matched name.
package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DefaultURL is where the identity service listens by default.
const DefaultURL = "ws://localhost:8766"

// Unknown is the label the service returns when no face matches.
const Unknown = "Unknown"

const dataURLPrefix = "data:image/jpeg;base64,"

// ErrClosed is returned by calls on a closed client.
var ErrClosed = errors.New("identity client closed")

// Client is a lazily connected identity service client. Calls are
// serialized; a failed call drops the connection and the next call redials.
type Client struct {
	url          string
	dialer       *websocket.Dialer
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       logrus.FieldLogger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewClient creates a client for the service at url.
func NewClient(url string, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		url:          url,
		dialer:       &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		readTimeout:  5 * time.Second,
		writeTimeout: 2 * time.Second,
		logger:       logger.WithField("component", "identity"),
	}
}

// Identify encodes the crop as JPEG and asks the service who it is.
func (c *Client) Identify(ctx context.Context, crop *gocv.Mat) (string, error) {
	jpeg, err := EncodeJPEG(crop)
	if err != nil {
		return "", err
	}
	return c.IdentifyJPEG(ctx, jpeg)
}

// IdentifyJPEG sends already encoded JPEG bytes and returns the label.
func (c *Client) IdentifyJPEG(ctx context.Context, jpeg []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return "", err
		}
	}

	label, err := c.roundTrip(ctx, DataURL(jpeg))
	if err != nil {
		c.conn.Close()
		c.conn = nil
		return "", err
	}
	return label, nil
}

func (c *Client) connect(ctx context.Context) error {
	c.logger.WithField("url", c.url).Debug("connecting to identity service")
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) roundTrip(ctx context.Context, msg string) (string, error) {
	c.conn.SetWriteDeadline(deadline(ctx, c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return "", fmt.Errorf("error sending face crop: %w", err)
	}

	c.conn.SetReadDeadline(deadline(ctx, c.readTimeout))
	_, reply, err := c.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("error reading identity reply: %w", err)
	}

	label := strings.TrimSpace(string(reply))
	if label == "" {
		label = Unknown
	}
	return label, nil
}

// Connected reports whether a connection is currently held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close closes the connection. Further calls return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// DataURL wraps JPEG bytes in the data URL the service expects.
func DataURL(jpeg []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
}

// DecodeDataURL extracts the JPEG bytes from a data URL.
func DecodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// EncodeJPEG encodes a Mat as JPEG bytes.
func EncodeJPEG(img *gocv.Mat) ([]byte, error) {
	if img == nil || img.Empty() {
		return nil, errors.New("empty image")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	defer buf.Close()

	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Crop returns a copy of the frame region r clipped to the frame, or false
// when nothing remains.
func Crop(frame *gocv.Mat, r image.Rectangle) (gocv.Mat, bool) {
	r = r.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if r.Empty() {
		return gocv.Mat{}, false
	}
	region := frame.Region(r)
	defer region.Close()
	return region.Clone(), true
}
