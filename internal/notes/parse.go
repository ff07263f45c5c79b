package notes

import (
	"regexp"
	"strings"
)

var (
	qaDelimRe        = regexp.MustCompile(`Q:|A:`)
	flashcardSideRe  = regexp.MustCompile(`FRONT:|BACK:`)
	bulletMarkers    = []string{"-", "•"}
	flashcardDivider = "---"
)

// ParseBullets splits raw into display lines. Blank lines are dropped; lines
// starting with "-" or "•" become bullets with the marker removed.
func ParseBullets(raw string) []BulletItem {
	var out []BulletItem
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if text, ok := cutBulletMarker(trimmed); ok {
			out = append(out, BulletItem{Text: text, Bullet: true})
			continue
		}
		out = append(out, BulletItem{Text: trimmed})
	}
	return out
}

func cutBulletMarker(line string) (string, bool) {
	for _, m := range bulletMarkers {
		if rest, ok := strings.CutPrefix(line, m); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// ParseQA splits raw on the Q: and A: tokens and pairs the non-empty segments
// positionally. A trailing segment without a partner is dropped.
func ParseQA(raw string) []QAPair {
	segments := nonEmptySegments(qaDelimRe.Split(raw, -1))
	out := make([]QAPair, 0, len(segments)/2)
	for i := 0; i+1 < len(segments); i += 2 {
		out = append(out, QAPair{Question: segments[i], Answer: segments[i+1]})
	}
	return out
}

// ParseFlashcards splits raw into cards on "---", then each card on the FRONT:
// and BACK: tokens. The first surviving segment is the front, the second the
// back; either may be missing.
func ParseFlashcards(raw string) []Flashcard {
	var out []Flashcard
	for _, card := range strings.Split(raw, flashcardDivider) {
		if strings.TrimSpace(card) == "" {
			continue
		}
		var fc Flashcard
		sides := nonEmptySegments(flashcardSideRe.Split(card, -1))
		if len(sides) > 0 {
			fc.Front = &sides[0]
		}
		if len(sides) > 1 {
			fc.Back = &sides[1]
		}
		out = append(out, fc)
	}
	return out
}

// nonEmptySegments trims every segment and drops the empty ones.
func nonEmptySegments(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
