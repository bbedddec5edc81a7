package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// breakWindow limits how far back the natural-break search looks from the
// proposed chunk end.
const breakWindow = 60000

// naturalBreaks are the separators considered safe split points, in priority
// order. The first separator found within the window wins.
var naturalBreaks = []string{"\n\n", "\n", ". ", "; "}

// Options controls how a document is segmented.
type Options struct {
	ChunkSize    int
	OverlapSize  int
	MinChunkSize int
}

// DefaultOptions returns the segmentation parameters used for regulatory
// documents.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    20000,
		OverlapSize:  2000,
		MinChunkSize: 3000,
	}
}

// Chunk is a bounded segment of the source document. Chunks are immutable
// after creation; the ID is derived from content so re-chunking identical
// text yields identical IDs.
type Chunk struct {
	ID          string `json:"chunkId"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"totalChunks"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
	SizeChars   int    `json:"sizeChars"`
	Content     string `json:"content"`
}

// Split segments a document into overlapping chunks, preferring natural
// break points over mid-sentence cuts. An empty document yields no chunks;
// a document no longer than ChunkSize yields exactly one. Split is a pure
// function.
func Split(text string, opts Options) []Chunk {
	if text == "" {
		return nil
	}
	if opts.ChunkSize <= 0 {
		opts = DefaultOptions()
	}
	if opts.MinChunkSize > opts.ChunkSize {
		opts.MinChunkSize = opts.ChunkSize
	}

	if len(text) <= opts.ChunkSize {
		return finalize([]Chunk{{
			StartOffset: 0,
			EndOffset:   len(text),
			Content:     text,
		}})
	}

	var chunks []Chunk
	cursor := 0
	for cursor < len(text) {
		end := cursor + opts.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			if br := naturalEnd(text, cursor, end); br > 0 {
				minEnd := cursor + opts.MinChunkSize
				if br < minEnd {
					br = minEnd
				}
				if br < end {
					end = br
				}
			}
		}

		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			StartOffset: cursor,
			EndOffset:   end,
			Content:     text[cursor:end],
		})

		if end >= len(text) {
			break
		}

		// The +1 floor guarantees forward progress even when
		// OverlapSize >= ChunkSize.
		next := end - opts.OverlapSize
		if next < cursor+1 {
			next = cursor + 1
		}
		cursor = next
	}

	return finalize(chunks)
}

// Fragments splits text into plain overlapping fragments using the same
// break heuristic as Split but without a minimum-size floor. Used for
// normative-text fragmenting where short fragments are acceptable.
func Fragments(text string, size, overlap int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var out []string
	cursor := 0
	for cursor < len(text) {
		end := cursor + size
		if end >= len(text) {
			end = len(text)
		} else if br := naturalEnd(text, cursor, end); br > cursor {
			end = br
		}
		out = append(out, text[cursor:end])
		if end >= len(text) {
			break
		}
		next := end - overlap
		if next < cursor+1 {
			next = cursor + 1
		}
		cursor = next
	}
	return out
}

// naturalEnd searches backward from the proposed end for the highest-priority
// separator and returns the position just past it, or 0 if none is found.
func naturalEnd(text string, cursor, proposed int) int {
	windowStart := proposed - breakWindow
	if windowStart < cursor {
		windowStart = cursor
	}
	window := text[windowStart:proposed]
	for _, sep := range naturalBreaks {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return windowStart + idx + len(sep)
		}
	}
	return 0
}

// finalize stamps the total count and the content-derived IDs.
func finalize(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
		chunks[i].SizeChars = len(chunks[i].Content)
		chunks[i].ID = chunkID(i, chunks[i].Content)
	}
	return chunks
}

// chunkID derives a stable identifier from the chunk index and a content
// hash, so identical content at the same position always maps to the same ID.
func chunkID(index int, content string) string {
	sum := sha1.Sum([]byte(content))
	return fmt.Sprintf("doc-chunk-%03d-%s", index, hex.EncodeToString(sum[:])[:12])
}
