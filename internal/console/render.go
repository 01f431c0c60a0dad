package console

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/command"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// bar draws a fixed-width gauge of cur out of total.
func bar(cur, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(max(cur*width/total, 0), width)
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// RenderStatus formats the player's stats and emotion counters.
func RenderStatus(p *player.State) string {
	var b strings.Builder
	b.WriteString(Colorf(BrightYellow, "%s  Lv %d", p.Name, p.Level))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  HP %s %d/%d\n", Colorize(Green, bar(p.CurrentHP, p.MaxHP, 20)), p.CurrentHP, p.MaxHP))
	b.WriteString(fmt.Sprintf("  MP %s %d/%d\n", Colorize(Cyan, bar(p.CurrentMP, p.MaxMP, 20)), p.CurrentMP, p.MaxMP))
	b.WriteString(fmt.Sprintf("  EXP %d/%d\n", p.Experience, p.ExperienceToNext))
	b.WriteString(Colorize(Magenta, "Emotions:"))
	b.WriteString("\n")
	for _, tag := range emotion.Counters {
		b.WriteString(fmt.Sprintf("  %-11s %3d\n", tag, p.Emotions.Get(tag)))
	}
	b.WriteString(fmt.Sprintf("Saved %d of %d battles (won %d)\n", p.SavedCount, p.TotalBattles, p.BattlesWon))
	return b.String()
}

// RenderBattle formats the open battle's enemy and turn counters.
func RenderBattle(s *battle.Session) string {
	e := s.Enemy()
	var b strings.Builder
	b.WriteString(Colorize(BrightRed, e.Name))
	b.WriteString(fmt.Sprintf("  HP %s %d/%d\n", Colorize(Red, bar(e.CurrentHP, e.MaxHP, 20)), e.CurrentHP, e.MaxHP))
	b.WriteString(fmt.Sprintf("Turn %d  AP %d  (%s)\n", s.Turn(), s.ActionPoints(), s.Phase()))
	return b.String()
}

// RenderSkills lists the skills p has unlocked, in content order.
func RenderSkills(p *player.State, skills []*content.Skill) string {
	var b strings.Builder
	b.WriteString(Colorize(BrightCyan, "Memory skills:"))
	b.WriteString("\n")
	n := 0
	for _, sk := range skills {
		if !p.HasSkill(sk.ID) {
			continue
		}
		n++
		name := sk.NameEN
		if name == "" {
			name = sk.Name
		}
		b.WriteString(fmt.Sprintf("  %-16s %-20s %-11s power %3d  mp %2d\n", sk.ID, name, sk.Emotion, sk.BasePower, sk.MPCost))
	}
	if n == 0 {
		b.WriteString(Colorize(Dim, "  (none)"))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderInventory lists the items p holds. item resolves display names.
func RenderInventory(p *player.State, item func(string) (*content.Item, bool)) string {
	ids := make([]string, 0, len(p.Items))
	for id, n := range p.Items {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString(Colorize(BrightCyan, "Items:"))
	b.WriteString("\n")
	if len(ids) == 0 {
		b.WriteString(Colorize(Dim, "  (empty)"))
		b.WriteString("\n")
	}
	for _, id := range ids {
		name := id
		if it, ok := item(id); ok && it.Name != "" {
			name = it.Name
		}
		b.WriteString(fmt.Sprintf("  %-16s %-20s x%d\n", id, name, p.Items[id]))
	}
	return b.String()
}

// RenderEnding formats the ending reached at the end of a playthrough.
func RenderEnding(r *ending.Rule, firstTime bool) string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = r.ID
	}
	b.WriteString("\n")
	b.WriteString(Colorf(BrightMagenta, "=== %s ===", title))
	b.WriteString("\n")
	for _, line := range r.Lines {
		b.WriteString(Colorize(White, line))
		b.WriteString("\n")
	}
	if r.Stars > 0 {
		b.WriteString(Colorize(BrightYellow, strings.Repeat("*", r.Stars)))
		b.WriteString("\n")
	}
	if firstTime {
		b.WriteString(Colorize(BrightGreen, "A new ending has been recorded."))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderEndings lists every ending rule, marking the ones in seen.
func RenderEndings(seen []string, rules []ending.Rule) string {
	var b strings.Builder
	b.WriteString(Colorf(BrightCyan, "Endings seen: %d/%d", len(seen), len(rules)))
	b.WriteString("\n")
	for _, r := range ending.Ordered(rules) {
		if slices.Contains(seen, r.ID) {
			b.WriteString(fmt.Sprintf("  %s %s\n", Colorize(BrightGreen, "[x]"), r.Title))
		} else {
			b.WriteString(fmt.Sprintf("  %s %s\n", Colorize(Dim, "[ ]"), "???"))
		}
	}
	return b.String()
}

// RenderHelp lists commands grouped by category.
//
// Precondition: cmds must be ordered by category.
func RenderHelp(cmds []*command.Command) string {
	var b strings.Builder
	category := ""
	for _, cmd := range cmds {
		if cmd.Category != category {
			category = cmd.Category
			b.WriteString(Colorize(BrightYellow, strings.ToUpper(category[:1])+category[1:]))
			b.WriteString("\n")
		}
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		line := fmt.Sprintf("  %-20s %s", usage, cmd.Help)
		if len(cmd.Aliases) > 0 {
			line += Colorf(Dim, " (%s)", strings.Join(cmd.Aliases, ", "))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
