package ai

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/notes"
)

// ContentPlaceholder marks where the user content is substituted in a template.
const ContentPlaceholder = "{{content}}"

// Refinement is a rewrite applied to already generated notes.
type Refinement string

const (
	RefineShorter  Refinement = "shorter"
	RefineDetailed Refinement = "detailed"
)

// ParseRefinement validates a refinement kind.
func ParseRefinement(s string) (Refinement, error) {
	switch r := Refinement(strings.ToLower(strings.TrimSpace(s))); r {
	case RefineShorter, RefineDetailed:
		return r, nil
	}
	return "", apperr.NewValidation("refinement", fmt.Sprintf("unknown refinement %q", s))
}

// Prompt is a system instruction plus a user template containing ContentPlaceholder.
type Prompt struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`
}

// Render substitutes content into the template.
func (p Prompt) Render(content string) (system, user string) {
	return p.System, strings.ReplaceAll(p.Template, ContentPlaceholder, content)
}

// PromptSet is the full collection of generation and refinement prompts.
type PromptSet struct {
	Formats     map[notes.Format]Prompt `yaml:"formats"`
	Refinements map[Refinement]Prompt   `yaml:"refinements"`
}

// DefaultPromptSet returns the built-in prompts.
func DefaultPromptSet() PromptSet {
	return PromptSet{
		Formats: map[notes.Format]Prompt{
			notes.FormatBullet: {
				System: "You are an expert at creating concise, exam-focused bullet-point notes from academic content.",
				Template: `Convert the following content into concise bullet-point notes suitable for exam revision.
Focus on:
- Key definitions and concepts
- Important formulas or principles
- Critical examples
- Exam-relevant information

Keep it brief and scannable. Use clear, simple language.

Content:
{{content}}

Generate bullet-point notes:`,
			},
			notes.FormatQA: {
				System: "You are an expert at creating Q&A study materials from academic content.",
				Template: `Convert the following content into Q&A format for exam preparation.
Create questions that:
- Test understanding of key concepts
- Cover important definitions
- Include application-based questions
- Are exam-style questions

Format each as:
Q: [Question]
A: [Detailed Answer]

Content:
{{content}}

Generate Q&A pairs:`,
			},
			notes.FormatFlashcard: {
				System: "You are an expert at creating flashcards for effective memorization.",
				Template: `Convert the following content into flashcard format.
Each flashcard should have:
- FRONT: A question, term, or concept
- BACK: The answer, definition, or explanation

Keep answers concise but complete. Focus on memorization-friendly content.

Format as:
FRONT: [Question/Term]
BACK: [Answer/Definition]
---

Content:
{{content}}

Generate flashcards:`,
			},
		},
		Refinements: map[Refinement]Prompt{
			RefineShorter: {
				System: "You are an expert at condensing information while preserving key points.",
				Template: `Make the following notes shorter and more concise (reduce by ~30%).
Keep only the most essential information.
Maintain clarity and exam-relevance.

Current notes:
{{content}}

Condensed version:`,
			},
			RefineDetailed: {
				System: "You are an expert at expanding notes with helpful context and examples.",
				Template: `Expand the following notes with more detail, context, and examples.
Add explanations that aid understanding.
Keep it exam-focused and clear.

Current notes:
{{content}}

Detailed version:`,
			},
		},
	}
}

// LoadPromptSet reads a YAML prompts file and overlays it on the defaults.
// Entries missing from the file keep their built-in text.
func LoadPromptSet(path string) (PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("prompts: read %s: %w", path, err)
	}
	var override PromptSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return PromptSet{}, fmt.Errorf("prompts: parse %s: %w", path, err)
	}

	set := DefaultPromptSet()
	for f, p := range override.Formats {
		if !f.Structured() {
			return PromptSet{}, fmt.Errorf("prompts: unknown format %q", f)
		}
		set.Formats[f] = mergePrompt(set.Formats[f], p)
	}
	for r, p := range override.Refinements {
		if _, err := ParseRefinement(string(r)); err != nil {
			return PromptSet{}, fmt.Errorf("prompts: unknown refinement %q", r)
		}
		set.Refinements[r] = mergePrompt(set.Refinements[r], p)
	}
	return set, nil
}

func mergePrompt(base, override Prompt) Prompt {
	if override.System != "" {
		base.System = override.System
	}
	if override.Template != "" {
		base.Template = override.Template
	}
	return base
}

// Prompts is a concurrency-safe holder of the active PromptSet.
type Prompts struct {
	mu  sync.RWMutex
	set PromptSet
}

// NewPrompts creates a holder initialised with set.
func NewPrompts(set PromptSet) *Prompts {
	return &Prompts{set: set}
}

// Replace swaps the active set.
func (p *Prompts) Replace(set PromptSet) {
	p.mu.Lock()
	p.set = set
	p.mu.Unlock()
}

// ForFormat builds the prompts that generate notes in format f.
func (p *Prompts) ForFormat(f notes.Format, content string) (system, user string, err error) {
	p.mu.RLock()
	prompt, ok := p.set.Formats[f]
	p.mu.RUnlock()
	if !ok {
		return "", "", apperr.NewValidation("format", fmt.Sprintf("no prompt for format %q", f))
	}
	system, user = prompt.Render(content)
	return system, user, nil
}

// ForRefinement builds the prompts that rewrite existing notes.
func (p *Prompts) ForRefinement(r Refinement, current string) (system, user string, err error) {
	p.mu.RLock()
	prompt, ok := p.set.Refinements[r]
	p.mu.RUnlock()
	if !ok {
		return "", "", apperr.NewValidation("refinement", fmt.Sprintf("no prompt for refinement %q", r))
	}
	system, user = prompt.Render(current)
	return system, user, nil
}
