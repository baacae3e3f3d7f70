package ingest

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Document is one source document of the corpus before chunking.
type Document struct {
	// Source identifies the document; for CSV files each row is its own
	// document with a "#row<N>" suffix.
	Source   string
	Text     string
	FileType string
}

// LoadDir walks root and loads every supported corpus file: .txt as-is,
// .md stripped to plain text, .csv one document per row. Other files are
// skipped.
func LoadDir(root string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		loaded, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadFile loads a single corpus file into documents.
func LoadFile(path string) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Document{{Source: path, Text: string(data), FileType: "txt"}}, nil
	case ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Document{{Source: path, Text: markdownToPlainText(data), FileType: "md"}}, nil
	case ".csv":
		return loadCSV(path)
	default:
		return nil, nil
	}
}

// loadCSV turns each data row into one document: "header: value" lines for
// the non-empty cells, so Q&A-style datasets keep their structure as text.
func loadCSV(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	docs := make([]Document, 0, len(records)-1)
	for rowIdx, row := range records[1:] {
		var lines []string
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			name := fmt.Sprintf("column_%d", i)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			lines = append(lines, name+": "+cell)
		}
		if len(lines) == 0 {
			continue
		}
		docs = append(docs, Document{
			Source:   fmt.Sprintf("%s#row%d", path, rowIdx),
			Text:     strings.Join(lines, "\n"),
			FileType: "csv",
		})
	}
	return docs, nil
}

// markdownToPlainText strips markdown structure, keeping the readable text
// with paragraph breaks preserved for the chunker's separator hierarchy.
func markdownToPlainText(src []byte) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
