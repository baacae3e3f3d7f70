package rag

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// NoGroundingMarker is the context block produced when retrieval found no
// usable candidates. It tells the generator to say so instead of letting the
// model fabricate a sourced-looking answer.
const NoGroundingMarker = "NO_SOURCED_INFORMATION"

// citationContentLimit caps how much chunk text a citation carries back to
// the client. The full text still goes into the prompt context.
const citationContentLimit = 500

// AssembleContext converts ranked candidates into a bounded context block.
// Candidates are appended in rank order until the next block would exceed
// budget characters; the returned slice holds exactly the candidates whose
// text made it into the block, so citations and context always agree.
func AssembleContext(candidates []Candidate, budget int) (string, []Candidate) {
	if len(candidates) == 0 {
		return NoGroundingMarker, nil
	}

	var b strings.Builder
	included := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		block := fmt.Sprintf("[Source %d: %s]\n%s\n\n", len(included)+1, sourceTitle(cand.Chunk.Source), cand.Chunk.Text)
		if b.Len()+len(block) > budget {
			break
		}
		b.WriteString(block)
		included = append(included, cand)
	}

	if len(included) == 0 {
		// Even the best candidate alone blows the budget. Treat as no
		// grounding rather than emitting a truncated, misattributable block.
		return NoGroundingMarker, nil
	}

	return strings.TrimSuffix(b.String(), "\n"), included
}

// BuildCitations projects included candidates into client-facing citations.
func BuildCitations(included []Candidate) []Citation {
	citations := make([]Citation, 0, len(included))
	for _, cand := range included {
		content := cand.Chunk.Text
		if len(content) > citationContentLimit {
			// Back up to a rune boundary so the cut never produces
			// invalid UTF-8 in client-visible text.
			cut := citationContentLimit
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}
		citations = append(citations, Citation{
			ID:             cand.Chunk.ID,
			Title:          sourceTitle(cand.Chunk.Source),
			Content:        content,
			RelevanceScore: float64(cand.Score),
			Metadata: CitationMeta{
				Source:      cand.Chunk.Source,
				ChunkIndex:  cand.Chunk.Position,
				TotalChunks: cand.Chunk.TotalInSource,
				ChunkSize:   cand.Chunk.CharLength,
				FileType:    cand.Chunk.FileType,
			},
		})
	}
	return citations
}

// sourceTitle derives a human-readable title from a source document path.
func sourceTitle(source string) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ReplaceAll(base, "_", " ")
}
