package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
)

// EnemiesFile is the file name imported enemies are written to inside the
// content tree's enemies directory.
const EnemiesFile = "imported.yaml"

// Importer orchestrates content import from a Source to an output directory.
type Importer struct {
	source Source
}

// New constructs an Importer backed by the given Source.
//
// Precondition: source must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source) *Importer {
	if source == nil {
		panic("importer.New: source must not be nil")
	}
	return &Importer{source: source}
}

// Run loads a bundle from sourceDir, validates it as a whole, and writes it
// into the content tree rooted at outputDir. Skills and endings are only
// written when the source provided any.
//
// Precondition: sourceDir must satisfy the source's layout requirements;
// outputDir must exist or be creatable.
// Postcondition: the content files are written to outputDir, or an error is
// returned and nothing that failed validation is written.
func (imp *Importer) Run(sourceDir, outputDir string) error {
	overall := time.Now()

	t0 := time.Now()
	b, err := imp.source.Load(sourceDir)
	if err != nil {
		return fmt.Errorf("loading source: %w", err)
	}
	fmt.Printf("load    %d enemies, %d skills, %d endings in %s\n",
		len(b.Enemies), len(b.Skills), len(b.Endings), time.Since(t0).Round(time.Millisecond))

	// Cross-record checks (duplicate ids, unknown emotions) happen here.
	if _, err := content.New(content.Data{Enemies: b.Enemies, Skills: b.Skills, Endings: b.Endings}); err != nil {
		return fmt.Errorf("bundle failed validation: %w", err)
	}

	enemiesDir := filepath.Join(outputDir, content.EnemiesDir)
	if err := os.MkdirAll(enemiesDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", enemiesDir, err)
	}

	if err := write(filepath.Join(enemiesDir, EnemiesFile), b.Enemies, func(data []byte) error {
		_, err := enemy.LoadTemplatesFromBytes(data)
		return err
	}); err != nil {
		return err
	}
	if len(b.Skills) > 0 {
		if err := write(filepath.Join(outputDir, content.SkillsFile), b.Skills, nil); err != nil {
			return err
		}
	}
	if len(b.Endings) > 0 {
		if err := write(filepath.Join(outputDir, content.EndingsFile), b.Endings, func(data []byte) error {
			_, err := ending.LoadRules(data)
			return err
		}); err != nil {
			return err
		}
	}

	fmt.Printf("total   %s\n", time.Since(overall).Round(time.Millisecond))
	return nil
}

// write marshals v, runs check on the encoded bytes when non-nil, and writes
// the result to path.
func write(path string, v any, check func([]byte) error) error {
	t1 := time.Now()
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialising %s: %w", filepath.Base(path), err)
	}
	// Validate output is loadable before writing.
	if check != nil {
		if err := check(data); err != nil {
			return fmt.Errorf("%s failed validation: %w", filepath.Base(path), err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote   %s  in %s\n", path, time.Since(t1).Round(time.Millisecond))
	return nil
}
