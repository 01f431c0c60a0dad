package importer

import (
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
)

// Bundle is the common intermediate format produced by all Source
// implementations. Its records carry the content tree's YAML tags, so each
// slice can be marshalled directly into the matching content file.
type Bundle struct {
	Enemies []*enemy.Template
	Skills  []*content.Skill
	Endings []ending.Rule
}

// Source loads content from a format-specific source directory.
//
// Precondition: sourceDir must exist and contain the expected layout for the format.
// Postcondition: returns a Bundle holding at least one enemy, or a non-nil error.
type Source interface {
	Load(sourceDir string) (*Bundle, error)
}
