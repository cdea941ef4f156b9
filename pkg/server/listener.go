package server

import (
	"net"
	"time"
)

// Listener wraps a net.Listener and gives a place to store the timeout
// parameters. On Accept, it wraps the net.Conn with our own Conn.
// Original implementation taken from https://gist.github.com/jbardin/9663312
// Thanks! <3
type Listener struct {
	net.Listener
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	// Set the timeouts when the connection is accepted. They get refreshed
	// after successful read and write operations.
	if l.ReadTimeout > 0 {
		err = c.SetReadDeadline(time.Now().Add(l.ReadTimeout))
	} else {
		err = c.SetReadDeadline(time.Time{})
	}
	if err != nil {
		return nil, err
	}

	if l.WriteTimeout > 0 {
		err = c.SetWriteDeadline(time.Now().Add(l.WriteTimeout))
	} else {
		err = c.SetWriteDeadline(time.Time{})
	}
	if err != nil {
		return nil, err
	}

	return &Conn{
		Conn:         c,
		ReadTimeout:  l.ReadTimeout,
		WriteTimeout: l.WriteTimeout,
	}, nil
}

// Conn wraps a net.Conn and refreshes the deadline after every read and
// write operation.
type Conn struct {
	net.Conn
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	// If the read did not time out, move the deadline forward to allow for
	// the next operation.
	if !isTimeoutError(err) && c.ReadTimeout > 0 {
		err2 := c.Conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
		if err == nil {
			err = err2
		}
	}
	return n, err
}

func (c *Conn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if !isTimeoutError(err) && c.WriteTimeout > 0 {
		err2 := c.Conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
		if err == nil {
			err = err2
		}
	}
	return n, err
}

// NewListener binds a TCP socket wrapped with the timeout bookkeeping.
func NewListener(addr string, readTimeout, writeTimeout time.Duration) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{
		Listener:     l,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}, nil
}

// isTimeoutError checks if err is a network timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	netErr, ok := err.(*net.OpError)
	if !ok {
		return false
	}
	return netErr.Timeout()
}
