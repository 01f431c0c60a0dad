// Package savefile stores saved games as YAML files, one per slot.
package savefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// FormatVersion is written into every save file.
const FormatVersion = 1

const ext = ".yaml"

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// document is the on-disk layout of a save.
type document struct {
	Version  int           `yaml:"version"`
	Revision string        `yaml:"revision"`
	SavedAt  time.Time     `yaml:"saved_at"`
	Player   *player.State `yaml:"player"`
}

// Store saves player snapshots under dir/<slot>.yaml.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
//
// Precondition: logger must be non-nil.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		panic("savefile.New: logger must not be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save dir %q: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(slot string) (string, error) {
	if !slotPattern.MatchString(slot) {
		return "", fmt.Errorf("invalid slot name %q", slot)
	}
	return filepath.Join(s.dir, slot+ext), nil
}

// Save writes p to the slot file. The write goes through a temporary file
// and a rename so a crash never leaves a half-written save.
func (s *Store) Save(_ context.Context, slot string, p *player.State) error {
	path, err := s.path(slot)
	if err != nil {
		return err
	}
	doc := document{
		Version:  FormatVersion,
		Revision: uuid.NewString(),
		SavedAt:  time.Now().UTC(),
		Player:   p,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding slot %q: %w", slot, err)
	}

	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for slot %q: %w", slot, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing slot %q: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing slot %q: %w", slot, err)
	}
	s.logger.Debug("save written", zap.String("slot", slot), zap.String("revision", doc.Revision))
	return nil
}

// Load reads the slot file.
//
// Postcondition: Returns an error wrapping campaign.ErrNoSave when the file
// does not exist, or an error for an unknown format version.
func (s *Store) Load(_ context.Context, slot string) (*player.State, error) {
	path, err := s.path(slot)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("slot %q: %w", slot, campaign.ErrNoSave)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %q: %w", slot, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing slot %q: %w", slot, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("slot %q: unsupported save version %d", slot, doc.Version)
	}
	if doc.Player == nil {
		return nil, fmt.Errorf("slot %q: missing player", slot)
	}
	if doc.Player.Items == nil {
		doc.Player.Items = map[string]int{}
	}
	return doc.Player, nil
}

// Slots lists the slots that hold a save, sorted by name.
func (s *Store) Slots() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing save dir %q: %w", s.dir, err)
	}
	var slots []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, ext))
	}
	slices.Sort(slots)
	return slots, nil
}

// Delete removes the slot file.
//
// Postcondition: Returns an error wrapping campaign.ErrNoSave if there was none.
func (s *Store) Delete(slot string) error {
	path, err := s.path(slot)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("slot %q: %w", slot, campaign.ErrNoSave)
		}
		return fmt.Errorf("deleting slot %q: %w", slot, err)
	}
	return nil
}
