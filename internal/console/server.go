package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/frontend/telnet"
	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
)

// maxNameAttempts bounds how often a client may offer an invalid name.
const maxNameAttempts = 3

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// SessionFactory builds a director for one connected dreamer. The director's
// battle narration must go to sink. release is called when the session ends.
type SessionFactory func(slot string, sink battle.Sink) (director *campaign.Director, release func(), err error)

// Server runs a Console per Telnet connection. Each client picks a dreamer
// name, which doubles as the save slot; a name can be in use by only one
// connection at a time.
type Server struct {
	catalog Catalog
	factory SessionFactory
	logger  *zap.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewServer creates a Server.
//
// Precondition: catalog, factory and logger must be non-nil.
func NewServer(catalog Catalog, factory SessionFactory, logger *zap.Logger) *Server {
	switch {
	case catalog == nil:
		panic("console.NewServer: catalog must not be nil")
	case factory == nil:
		panic("console.NewServer: factory must not be nil")
	case logger == nil:
		panic("console.NewServer: logger must not be nil")
	}
	return &Server{
		catalog: catalog,
		factory: factory,
		logger:  logger,
		active:  make(map[string]struct{}),
	}
}

// HandleSession implements telnet.SessionHandler.
func (s *Server) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return s.Serve(ctx, conn)
}

// Serve asks term for a dreamer name and runs a Console for it.
//
// Postcondition: Returns nil when the client quits, disconnects or gives up
// naming itself; the name is released before returning.
func (s *Server) Serve(ctx context.Context, term Terminal) error {
	_ = term.Write([]byte(Colorize(Dim, "You drift toward sleep...") + "\n"))
	name, err := s.claim(term)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		return err
	}
	if name == "" {
		return nil
	}
	defer s.release(name)

	logger := s.logger.With(zap.String("dreamer", name))
	director, release, err := s.factory(name, NewSink(term))
	if err != nil {
		_ = term.Write([]byte(Colorize(Red, "The dream realm is unavailable. Try again later.") + "\n"))
		return fmt.Errorf("preparing session for %q: %w", name, err)
	}
	if release != nil {
		defer release()
	}

	logger.Info("dreamer connected")
	err = New(director, s.catalog, term, logger).Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Active reports how many names are in use.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// claim prompts for a free, valid name. It returns "" when the client ran
// out of attempts.
func (s *Server) claim(term Terminal) (string, error) {
	for range maxNameAttempts {
		if err := term.Write([]byte("Who is dreaming? ")); err != nil {
			return "", err
		}
		line, err := term.ReadLine()
		if err != nil {
			return "", err
		}
		name := strings.TrimSpace(line)
		if !namePattern.MatchString(name) {
			_ = term.Write([]byte(Colorize(Yellow, "Names use letters, digits, '-' and '_' (at most 32).") + "\n"))
			continue
		}

		s.mu.Lock()
		_, taken := s.active[name]
		if !taken {
			s.active[name] = struct{}{}
		}
		s.mu.Unlock()
		if taken {
			_ = term.Write([]byte(Colorize(Yellow, "That dreamer is already asleep somewhere else.") + "\n"))
			continue
		}
		return name, nil
	}
	_ = term.Write([]byte("Goodbye.\n"))
	return "", nil
}

func (s *Server) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, name)
}
