package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// unit is a piece of text together with the separator that precedes it.
type unit struct {
	sep  string
	text string
}

func (u unit) size(first bool) int {
	n := utf8.RuneCountInString(u.text)
	if !first {
		n += utf8.RuneCountInString(u.sep)
	}
	return n
}

// Chunk splits text into pieces of at most size runes. Paragraphs are kept
// whole when they fit, otherwise split on spaces, and single words longer
// than size are cut. Consecutive chunks share up to overlap runes of
// trailing context.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var (
		chunks []string
		cur    []unit
		curLen int
	)
	for _, u := range splitUnits(text, size) {
		if len(cur) > 0 && curLen+u.size(false) > size {
			chunks = append(chunks, join(cur))
			cur, curLen = tail(cur, overlap)
			for len(cur) > 0 && curLen+u.size(false) > size {
				curLen -= cur[0].size(true)
				cur = cur[1:]
				if len(cur) > 0 {
					curLen -= utf8.RuneCountInString(cur[0].sep)
				}
			}
		}
		curLen += u.size(len(cur) == 0)
		cur = append(cur, u)
	}
	if len(cur) > 0 {
		chunks = append(chunks, join(cur))
	}
	return chunks
}

func splitUnits(text string, size int) []unit {
	var units []unit
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= size {
			units = append(units, unit{sep: "\n\n", text: para})
			continue
		}
		sep := "\n\n"
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > size {
				r := []rune(word)
				units = append(units, unit{sep: sep, text: string(r[:size])})
				word = string(r[size:])
				sep = ""
			}
			units = append(units, unit{sep: sep, text: word})
			sep = " "
		}
	}
	return units
}

func join(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(u.sep)
		}
		b.WriteString(u.text)
	}
	return b.String()
}

// tail returns the trailing units whose joined length stays within n.
func tail(units []unit, n int) ([]unit, int) {
	total := 0
	start := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		add := units[i].size(true)
		if i < len(units)-1 {
			add += utf8.RuneCountInString(units[i+1].sep)
		}
		if total+add > n {
			break
		}
		total += add
		start = i
	}
	out := make([]unit, len(units)-start)
	copy(out, units[start:])
	return out, total
}
