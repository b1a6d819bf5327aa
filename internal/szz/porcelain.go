package szz

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"cveorigin/internal/model"
)

// ParsePorcelain parses `git blame --line-porcelain` output for file.
// Blocks without a commit hash or author are dropped; the rest are kept.
func ParsePorcelain(file string, data []byte) []model.BlameLine {
	var lines []model.BlameLine
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	// --line-porcelain format:
	// <sha> <orig_line> <final_line> [<num_lines>]
	// author <name>
	// ...
	// filename <name>
	// \t<content>
	current := model.BlameLine{File: file}
	for scanner.Scan() {
		text := scanner.Text()

		if strings.HasPrefix(text, "\t") {
			// The content line ends the block
			current.Text = strings.TrimPrefix(text, "\t")
			if current.Commit != "" && current.Author != "" && current.Line > 0 {
				lines = append(lines, current)
			}
			current = model.BlameLine{File: file}
			continue
		}

		if current.Commit == "" {
			fields := strings.Fields(text)
			if len(fields) >= 3 && isHash(fields[0]) {
				if n, err := strconv.Atoi(fields[2]); err == nil {
					current.Commit = fields[0]
					current.Line = n
				}
			}
			continue
		}

		if author, ok := strings.CutPrefix(text, "author "); ok {
			current.Author = strings.TrimSpace(author)
		}
	}
	return lines
}

func isHash(s string) bool {
	if len(s) < 7 || len(s) > 64 {
		return false
	}
	zero := true
	for _, r := range s {
		switch {
		case r == '0':
		case r >= '1' && r <= '9', r >= 'a' && r <= 'f':
			zero = false
		default:
			return false
		}
	}
	// All-zero hashes mark uncommitted lines.
	return !zero
}
