package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// SaveRepository stores one player snapshot per slot.
type SaveRepository struct {
	db *pgxpool.Pool
}

// NewSaveRepository creates a SaveRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the saves table migrated.
func NewSaveRepository(db *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{db: db}
}

// Save upserts the snapshot for slot and stamps it with a fresh revision.
//
// Precondition: slot must be non-empty; p must satisfy player invariants.
// Postcondition: The row for slot reflects p.
func (r *SaveRepository) Save(ctx context.Context, slot string, p *player.State) error {
	items := p.Items
	if items == nil {
		items = map[string]int{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO saves
			(slot, revision, name, level, experience, experience_to_next,
			 max_hp, current_hp, max_mp, current_mp,
			 hope, empathy, despair, loneliness,
			 saved_count, battles_won, total_battles,
			 unlocked_skills, items, seen_endings, saved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW())
		ON CONFLICT (slot) DO UPDATE SET
			revision = EXCLUDED.revision, name = EXCLUDED.name,
			level = EXCLUDED.level, experience = EXCLUDED.experience,
			experience_to_next = EXCLUDED.experience_to_next,
			max_hp = EXCLUDED.max_hp, current_hp = EXCLUDED.current_hp,
			max_mp = EXCLUDED.max_mp, current_mp = EXCLUDED.current_mp,
			hope = EXCLUDED.hope, empathy = EXCLUDED.empathy,
			despair = EXCLUDED.despair, loneliness = EXCLUDED.loneliness,
			saved_count = EXCLUDED.saved_count, battles_won = EXCLUDED.battles_won,
			total_battles = EXCLUDED.total_battles,
			unlocked_skills = EXCLUDED.unlocked_skills, items = EXCLUDED.items,
			seen_endings = EXCLUDED.seen_endings, saved_at = NOW()`,
		slot, uuid.New(), p.Name, p.Level, p.Experience, p.ExperienceToNext,
		p.MaxHP, p.CurrentHP, p.MaxMP, p.CurrentMP,
		p.Emotions.Hope, p.Emotions.Empathy, p.Emotions.Despair, p.Emotions.Loneliness,
		p.SavedCount, p.BattlesWon, p.TotalBattles,
		nonNil(p.UnlockedSkills), items, nonNil(p.SeenEndings),
	)
	if err != nil {
		return fmt.Errorf("saving slot %q: %w", slot, err)
	}
	return nil
}

// Load returns the snapshot stored for slot.
//
// Postcondition: Returns an error wrapping campaign.ErrNoSave if the slot is empty.
func (r *SaveRepository) Load(ctx context.Context, slot string) (*player.State, error) {
	var p player.State
	err := r.db.QueryRow(ctx, `
		SELECT name, level, experience, experience_to_next,
		       max_hp, current_hp, max_mp, current_mp,
		       hope, empathy, despair, loneliness,
		       saved_count, battles_won, total_battles,
		       unlocked_skills, items, seen_endings
		FROM saves WHERE slot = $1`,
		slot,
	).Scan(
		&p.Name, &p.Level, &p.Experience, &p.ExperienceToNext,
		&p.MaxHP, &p.CurrentHP, &p.MaxMP, &p.CurrentMP,
		&p.Emotions.Hope, &p.Emotions.Empathy, &p.Emotions.Despair, &p.Emotions.Loneliness,
		&p.SavedCount, &p.BattlesWon, &p.TotalBattles,
		&p.UnlockedSkills, &p.Items, &p.SeenEndings,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slot %q: %w", slot, campaign.ErrNoSave)
	}
	if err != nil {
		return nil, fmt.Errorf("loading slot %q: %w", slot, err)
	}
	return &p, nil
}

// Revision returns the revision stamped by the last Save of slot.
//
// Postcondition: Returns an error wrapping campaign.ErrNoSave if the slot is empty.
func (r *SaveRepository) Revision(ctx context.Context, slot string) (uuid.UUID, error) {
	var rev uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT revision FROM saves WHERE slot = $1`, slot).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("slot %q: %w", slot, campaign.ErrNoSave)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading revision of slot %q: %w", slot, err)
	}
	return rev, nil
}

// Slots lists every slot that holds a save, in name order.
func (r *SaveRepository) Slots(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT slot FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	slots, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning slots: %w", err)
	}
	return slots, nil
}

// Delete removes the save in slot.
//
// Postcondition: Returns an error wrapping campaign.ErrNoSave if nothing was deleted.
func (r *SaveRepository) Delete(ctx context.Context, slot string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("deleting slot %q: %w", slot, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %q: %w", slot, campaign.ErrNoSave)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
