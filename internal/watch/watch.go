// Package watch delivers change notifications for a single file.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Unsubscribe releases a subscription. Calling it more than once is safe.
type Unsubscribe func() error

// Notifier calls onChange whenever the file at path is modified.
type Notifier interface {
	Subscribe(path string, onChange func()) (Unsubscribe, error)
}

// FSNotifier implements Notifier with fsnotify.
//
// It watches the parent directory rather than the file so that editors and
// tools replacing the file by rename are still seen, and so that a deleted
// file that is recreated keeps being tracked. Events are not debounced: one
// write may produce several callbacks.
type FSNotifier struct {
	log zerolog.Logger
}

// NewFSNotifier creates a notifier backed by the OS file watching API.
func NewFSNotifier(log zerolog.Logger) *FSNotifier {
	return &FSNotifier{log: log}
}

// Subscribe starts watching path. The file must exist.
func (n *FSNotifier) Subscribe(path string, onChange func()) (Unsubscribe, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", abs, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	sub := &subscription{
		fsw:      fsw,
		name:     filepath.Base(abs),
		onChange: onChange,
		log:      n.log.With().Str("path", abs).Logger(),
		done:     make(chan struct{}),
	}
	go sub.run()

	return sub.close, nil
}

type subscription struct {
	fsw      *fsnotify.Watcher
	name     string
	onChange func()
	log      zerolog.Logger
	done     chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *subscription) run() {
	defer close(s.done)

	for {
		select {
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != s.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			s.log.Debug().Str("op", event.Op.String()).Msg("watch: file changed")
			s.onChange()

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("watch: watcher error")
		}
	}
}

// close shuts the fsnotify handle and waits for the event loop to exit.
func (s *subscription) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.closed = true

	s.err = s.fsw.Close()
	<-s.done
	return s.err
}
