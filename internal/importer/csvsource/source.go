// Package csvsource reads the spreadsheet exports the game's content was
// authored in.
package csvsource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
	"github.com/cory-johannsen/dreamrealm/internal/importer"
)

var _ importer.Source = (*CSVSource)(nil)

// Source file names.
const (
	EnemiesFile = "battle_enemies.csv"
	SkillsFile  = "memory_skills.csv"
	EndingsFile = "endings.csv"
)

var (
	enemyColumns  = []string{"enemy_id", "name_jp", "hp", "attack_power", "weakness_emotion", "resist_emotion", "special_ability"}
	skillColumns  = []string{"skill_id", "name_jp", "name_en", "base_power", "emotion_type", "mp_cost", "description", "unlock_condition"}
	endingColumns = []string{"ending_id", "name_jp", "name_en", "hope_min", "empathy_min", "despair_max", "loneliness_max", "save_rate_min", "priority"}
)

// CSVSource implements importer.Source for a directory of CSV exports:
//
//	sourceDir/
//	  battle_enemies.csv  <- required
//	  memory_skills.csv   <- optional
//	  endings.csv         <- optional
type CSVSource struct{}

// NewSource constructs a CSVSource.
func NewSource() *CSVSource { return &CSVSource{} }

// Load reads the CSV files in sourceDir. Blank IDs are derived from the
// record's name; emotion columns are lowercased.
//
// Precondition: sourceDir must contain battle_enemies.csv.
// Postcondition: returns a Bundle with at least one enemy or a non-nil error.
func (s *CSVSource) Load(sourceDir string) (*importer.Bundle, error) {
	enemies, err := loadEnemies(filepath.Join(sourceDir, EnemiesFile))
	if err != nil {
		return nil, err
	}
	if len(enemies) == 0 {
		return nil, fmt.Errorf("%s: no enemies defined", EnemiesFile)
	}
	b := &importer.Bundle{Enemies: enemies}

	path := filepath.Join(sourceDir, SkillsFile)
	if exists(path) {
		if b.Skills, err = loadSkills(path); err != nil {
			return nil, err
		}
	}
	path = filepath.Join(sourceDir, EndingsFile)
	if exists(path) {
		if b.Endings, err = loadEndings(path); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func tag(v string) emotion.Tag {
	return emotion.Tag(strings.ToLower(strings.TrimSpace(v)))
}

func loadEnemies(path string) ([]*enemy.Template, error) {
	rows, err := readTable(path, EnemiesFile, enemyColumns)
	if err != nil {
		return nil, err
	}
	out := make([]*enemy.Template, 0, len(rows))
	for _, r := range rows {
		hp, err := r.integer("hp")
		if err != nil {
			return nil, err
		}
		atk, err := r.integer("attack_power")
		if err != nil {
			return nil, err
		}
		out = append(out, &enemy.Template{
			ID:             importer.RecordID("nightmare", r.str("enemy_id"), r.str("name_jp")),
			Name:           r.str("name_jp"),
			MaxHP:          hp,
			AttackPower:    atk,
			Weakness:       tag(r.str("weakness_emotion")),
			Resist:         tag(r.str("resist_emotion")),
			SpecialAbility: r.str("special_ability"),
		})
	}
	return out, nil
}

func loadSkills(path string) ([]*content.Skill, error) {
	rows, err := readTable(path, SkillsFile, skillColumns)
	if err != nil {
		return nil, err
	}
	out := make([]*content.Skill, 0, len(rows))
	for _, r := range rows {
		power, err := r.integer("base_power")
		if err != nil {
			return nil, err
		}
		cost, err := r.integer("mp_cost")
		if err != nil {
			return nil, err
		}
		out = append(out, &content.Skill{
			ID:          importer.RecordID("mem", r.str("skill_id"), r.str("name_en"), r.str("name_jp")),
			Name:        r.str("name_jp"),
			NameEN:      r.str("name_en"),
			BasePower:   power,
			Emotion:     tag(r.str("emotion_type")),
			MPCost:      cost,
			Description: r.str("description"),
			Unlock:      r.str("unlock_condition"),
		})
	}
	return out, nil
}

func loadEndings(path string) ([]ending.Rule, error) {
	rows, err := readTable(path, EndingsFile, endingColumns)
	if err != nil {
		return nil, err
	}
	out := make([]ending.Rule, 0, len(rows))
	for _, r := range rows {
		rule := ending.Rule{
			ID:    importer.RecordID("end", r.str("ending_id"), r.str("name_en"), r.str("name_jp")),
			Name:  r.str("name_jp"),
			Title: r.str("name_en"),
		}
		ints := []struct {
			column string
			dst    *int
		}{
			{"hope_min", &rule.HopeMin},
			{"empathy_min", &rule.EmpathyMin},
			{"despair_max", &rule.DespairMax},
			{"loneliness_max", &rule.LonelinessMax},
			{"priority", &rule.Priority},
		}
		for _, f := range ints {
			if *f.dst, err = r.integer(f.column); err != nil {
				return nil, err
			}
		}
		if rule.SaveRateMin, err = r.number("save_rate_min"); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
