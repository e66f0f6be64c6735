package subaru

import (
	"bufio"
	"os"
	"strings"
)

// askForConfirmation prompts with a yes/no question. Empty input means
// yes; anything that is not y/yes means no.
func askForConfirmation(prompt string) bool {
	colArrow.Print("-> ")
	colNote.Print(prompt + " [Y/n] ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "", "y", "yes":
		return true
	}
	return false
}

// describeProposal renders a pending change set as display lines for a
// confirmation prompt.
func describeProposal(p *ProposedChangeSet, store *IntentStore) []string {
	var lines []string
	for _, a := range p.Actions {
		rec := store.Get(a.ID)
		var verb string
		if p.Clear {
			verb = "unmark"
		} else {
			switch a.Mark {
			case MarkInstall:
				verb = "install"
			case MarkUpgrade:
				verb = "upgrade"
			case MarkRemove:
				verb = "remove"
			case MarkNone:
				// Cancelling a pending removal the new mark depends on.
				verb = "unmark"
			}
		}
		line := verb + " " + rec.Name
		if a.Tag == TagDepInduced && !p.Clear {
			line += " (dependency)"
		}
		if a.ID != p.Trigger && p.Clear {
			line += " (would no longer be satisfiable)"
		}
		lines = append(lines, line)
	}
	return lines
}
