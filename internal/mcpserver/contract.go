package mcpserver

// FormatContract describes the line delimiters the notes parser recognises.
// Notes written by hand or by another model should follow it.
const FormatContract = `# SnapNotes Format Contract

Notes are plain text. Each format is recognised by line prefixes only; no
Markdown, JSON, or HTML is interpreted.

## bullet

` + "```" + `text
Heading line without a marker
- First point
• Second point
` + "```" + `

1. A line starting with ` + "`-`" + ` or ` + "`•`" + ` is a bullet. The marker and the
   whitespace after it are removed.
2. Any other non-blank line is shown as a heading or paragraph.
3. Blank lines are ignored.

## qa

` + "```" + `text
Q: What is photosynthesis?
A: The process plants use to turn light into chemical energy.

Q: Where does it happen?
A: In the chloroplasts.
` + "```" + `

1. The text is split on every ` + "`Q:`" + ` and ` + "`A:`" + ` token and the non-empty
   pieces are paired in order: question, answer, question, answer.
2. Keep the tokens strictly alternating. A missing ` + "`A:`" + ` shifts every later pair.
3. A trailing question without an answer is dropped.
4. Questions and answers may span several lines.

## flashcard

` + "```" + `text
FRONT: Mitochondria
BACK: The powerhouse of the cell
---
FRONT: Ribosome
BACK: Site of protein synthesis
` + "```" + `

1. Cards are separated by ` + "`---`" + `.
2. Inside a card the text is split on ` + "`FRONT:`" + ` and ` + "`BACK:`" + `. The first
   non-empty piece is the front, the second the back. A missing side is
   shown as ` + "`N/A`" + `.
3. Blank segments between separators are skipped. Avoid ` + "`---`" + ` inside card text.

## copilot

Free-form assistant output. It is displayed with the bullet rules.
`
