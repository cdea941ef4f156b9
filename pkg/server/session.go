package server

import (
	"bufio"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/filedepot/filedepot/internal/uid"
	"github.com/filedepot/filedepot/pkg/handler"
	"github.com/filedepot/filedepot/pkg/httpwire"
)

// session serves one client connection. Requests are strictly serial: each
// response is fully written before the next request is read.
type session struct {
	server *Server
	conn   net.Conn
	logger zerolog.Logger
}

func newSession(server *Server, conn net.Conn) *session {
	return &session{
		server: server,
		conn:   conn,
		logger: server.logger.With().
			Str("session", uid.Uid()).
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

func (s *session) serve() {
	defer s.server.release(s.conn)

	br := bufio.NewReader(s.conn)
	for {
		req, err := httpwire.ParseRequest(br, s.server.config.Version)
		if err != nil {
			if err != io.EOF {
				s.fail(err)
			}
			return
		}

		router, ok := s.server.endpoints[req.Root]
		if !ok {
			s.logger.Info().Str("root", req.Root).Msg("unknown endpoint root")
			s.fail(handler.ErrUnknownEndpoint)
			return
		}

		resp := router.Dispatch(req)
		if _, err := resp.WriteTo(s.conn); err != nil {
			s.logger.Info().Err(err).Msg("response write failed")
			return
		}
		s.logger.Info().
			Str("method", req.Method).
			Str("url", req.FullURL).
			Int("status", resp.Status).
			Msg("request served")

		if !req.KeepAlive() {
			return
		}
	}
}

// fail sends the JSON error envelope for failures that happen outside a
// handler, then lets the session end.
func (s *session) fail(err error) {
	resp := handler.ErrorResponse(s.server.config.Version, s.server.config.ServerName, err)
	if _, werr := resp.WriteTo(s.conn); werr != nil {
		s.logger.Info().Err(werr).Msg("error response write failed")
		return
	}
	s.logger.Info().Err(err).Int("status", resp.Status).Msg("request rejected")
}
