package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fieldops/missiond/internal/models"
)

// Prompter asks questions on a line-oriented terminal.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer, or "" at end of input.
func (p *Prompter) Ask(label string) string {
	answer, _ := p.Line(label)
	return answer
}

// Line is Ask that also reports false once input is exhausted.
func (p *Prompter) Line(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (p *Prompter) Confirm(label string) bool {
	switch strings.ToLower(p.Ask(label + " [y/N]: ")) {
	case "y", "yes":
		return true
	}
	return false
}

// PromptUpdate walks the open tasks of m and returns the update that marks
// the confirmed ones done. The comment is replaced when a new one is typed.
func (p *Prompter) PromptUpdate(m *models.Mission) *models.MissionUpdate {
	upd := &models.MissionUpdate{}
	done := func() *models.CompletionUpdate {
		t := true
		return &models.CompletionUpdate{Completed: &t}
	}
	ask := func(l models.Leaf, label string) bool {
		return l.Present() && !l.Completed && p.Confirm(fmt.Sprintf("%s (%s) done?", label, l.Amount))
	}

	if c := m.Payload.Collect; c != nil {
		cu := &models.CollectUpdate{}
		if ask(c.Notes, "Collect notes") {
			cu.Notes = done()
		}
		if ask(c.Coins, "Collect coins") {
			cu.Coins = done()
		}
		if cu.Notes != nil || cu.Coins != nil {
			upd.Collect = cu
		}
	}

	if r := m.Payload.Refill; r != nil {
		ru := &models.RefillUpdate{}
		if ask(models.Leaf{Amount: r.Coins.Amount, Completed: r.Coins.Completed}, "Refill coins") {
			ru.Coins = done()
		}
		if ask(models.Leaf{Amount: r.Notes.Amount, Completed: r.Notes.Completed}, "Refill notes") {
			ru.Notes = done()
		}
		if ru.Coins != nil || ru.Notes != nil {
			upd.Refill = ru
		}
	}

	for i, task := range m.Payload.Maintenance {
		if task.Completed {
			continue
		}
		if p.Confirm(fmt.Sprintf("Maintenance %q done?", task.Task.String())) {
			t := true
			upd.Maintenance = append(upd.Maintenance, models.MaintenanceUpdate{Index: &i, Completed: &t})
		}
	}

	if comment := p.Ask("Comment (empty keeps current): "); comment != "" {
		upd.Comment = &comment
	}
	return upd
}

// Empty reports whether upd would change nothing.
func Empty(upd *models.MissionUpdate) bool {
	return upd.Collect == nil && upd.Refill == nil && len(upd.Maintenance) == 0 && upd.Comment == nil
}
