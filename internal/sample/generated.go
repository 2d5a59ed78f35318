package sample

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Generated is one code sample extracted from a generator's free-text reply.
type Generated struct {
	ID     string
	Source string
}

var (
	fencePattern = regexp.MustCompile("(?s)```[ \t]*(?:python|py)?[ \t]*\n(.*?)```")
	idPattern    = regexp.MustCompile(`(?m)^\s*#\s*id:\s*(\S+)`)
	unsafeChars  = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// ParseGenerated extracts fenced code blocks from text. A block's "# id:"
// metadata line names it; unnamed blocks are numbered. Text with no fences is
// split on "# id:" lines instead.
func ParseGenerated(text string) []Generated {
	var blocks []string
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	if len(blocks) == 0 {
		blocks = splitOnIDs(text)
	}

	var out []Generated
	seen := map[string]int{}
	for _, b := range blocks {
		src := strings.TrimSpace(b)
		if src == "" {
			continue
		}
		id := fmt.Sprintf("sample-%d", len(out)+1)
		if m := idPattern.FindStringSubmatch(src); m != nil {
			if clean := strings.Trim(unsafeChars.ReplaceAllString(m[1], "-"), "-."); clean != "" {
				id = clean
			}
		}
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		out = append(out, Generated{ID: id, Source: src + "\n"})
	}
	return out
}

func splitOnIDs(text string) []string {
	locs := idPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

// WriteAll writes generated samples as <id><ext> under <batchDir>/source_files.
func WriteAll(batchDir, ext string, gen []Generated) ([]string, error) {
	dir := filepath.Join(batchDir, SourceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	paths := make([]string, 0, len(gen))
	for _, g := range gen {
		p := filepath.Join(dir, g.ID+ext)
		if err := os.WriteFile(p, []byte(g.Source), 0o644); err != nil {
			return nil, fmt.Errorf("writing sample %s: %w", g.ID, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
