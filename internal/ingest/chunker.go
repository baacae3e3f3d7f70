package ingest

import "strings"

// defaultSeparators is the split hierarchy, tried in order: paragraph
// breaks first, then lines, sentence endings, clause breaks, words, and
// finally raw characters. Splitting only falls through to a lower level
// when the text has none of the higher separators, so chunks avoid
// mid-sentence cuts whenever the content allows it.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Chunker splits document text into overlapping chunks of bounded size.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker creates a chunker targeting size characters per chunk with
// overlap characters carried between adjacent chunks.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Chunker{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split splits text into chunks. Whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	if len(text) <= c.size {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	separator, remaining := pickSeparator(text, separators)
	if separator == "" {
		return c.hardSplit(text)
	}

	pieces := make([]string, 0)
	for _, part := range strings.SplitAfter(text, separator) {
		if len(part) > c.size {
			// The part has no occurrence of the current separator inside
			// (SplitAfter consumed them), so descend to finer separators.
			pieces = append(pieces, c.splitLong(part, remaining)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return c.merge(pieces)
}

// splitLong breaks an oversized piece with finer separators, returning raw
// pieces for merging rather than finished chunks.
func (c *Chunker) splitLong(text string, separators []string) []string {
	separator, remaining := pickSeparator(text, separators)
	if separator == "" {
		return c.hardSplit(text)
	}
	pieces := make([]string, 0)
	for _, part := range strings.SplitAfter(text, separator) {
		if len(part) > c.size {
			pieces = append(pieces, c.splitLong(part, remaining)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// merge greedily packs pieces into chunks up to the size limit, carrying an
// overlap tail from each finished chunk into the next.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() string {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		tail := overlapTail(current.String(), c.overlap)
		current.Reset()
		return tail
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > c.size {
			tail := flush()
			// Seed the next chunk with the overlap tail only if the
			// triggering piece still fits beside it; a near-size piece
			// must not push the chunk past the limit.
			if len(tail)+len(piece) <= c.size {
				current.WriteString(tail)
			}
		}
		current.WriteString(piece)
	}
	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// hardSplit cuts text into fixed-size runs with overlap. Last resort for
// text with no separators at all.
func (c *Chunker) hardSplit(text string) []string {
	step := c.size - c.overlap
	if step <= 0 {
		step = c.size
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := min(start+c.size, len(text))
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// pickSeparator returns the first separator present in text and the
// remaining finer separators. The empty separator always matches.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// overlapTail returns up to n trailing characters of s, advanced to the
// first word boundary so the overlap does not begin mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) == 0 {
		return ""
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	if idx := strings.IndexAny(s, " \n"); idx >= 0 {
		return strings.TrimLeft(s[idx:], " \n")
	}
	return s
}
