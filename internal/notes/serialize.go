package notes

import "strings"

// Serialize renders d as plain text in the delimiter format its parser reads.
func (d Document) Serialize() string {
	switch d.Format {
	case FormatQA:
		return SerializeQA(d.Pairs)
	case FormatFlashcard:
		return SerializeFlashcards(d.Cards)
	default:
		return SerializeBullets(d.Bullets)
	}
}

// SerializeBullets writes one line per item. Bullets always get the "- "
// marker, so a source "•" is canonicalized.
//
// Items are written unescaped. A non-bullet item whose text starts with "-"
// or "•" parses back as a bullet; items produced by ParseBullets never do.
func SerializeBullets(items []BulletItem) string {
	lines := make([]string, len(items))
	for i, it := range items {
		if it.Bullet {
			lines[i] = "- " + it.Text
		} else {
			lines[i] = it.Text
		}
	}
	return strings.Join(lines, "\n")
}

// SerializeQA writes "Q:"/"A:" line pairs separated by a blank line.
func SerializeQA(pairs []QAPair) string {
	blocks := make([]string, len(pairs))
	for i, p := range pairs {
		blocks[i] = "Q: " + p.Question + "\nA: " + p.Answer
	}
	return strings.Join(blocks, "\n\n")
}

// SerializeFlashcards writes FRONT:/BACK: blocks separated by "---" lines.
// Absent sides are omitted; a card with no sides keeps a bare "FRONT:" so it
// still counts as a card when parsed again.
//
// The parser assigns sides by position, so a card with only a back parses
// back as a front-only card. ParseFlashcards never produces such a card.
func SerializeFlashcards(cards []Flashcard) string {
	blocks := make([]string, len(cards))
	for i, c := range cards {
		var lines []string
		if c.Front != nil {
			lines = append(lines, "FRONT: "+*c.Front)
		}
		if c.Back != nil {
			lines = append(lines, "BACK: "+*c.Back)
		}
		if len(lines) == 0 {
			lines = append(lines, "FRONT:")
		}
		blocks[i] = strings.Join(lines, "\n")
	}
	return strings.Join(blocks, "\n"+flashcardDivider+"\n")
}
