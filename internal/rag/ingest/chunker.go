package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/akolanti/filebook/internal/config"
)

// SplitText cuts text into windows of chunkSize characters, each starting
// chunkSize-overlap characters after the previous one. Windows that are only
// whitespace are dropped; the others are kept verbatim so neighbours share
// exactly overlap characters.
func SplitText(text string, chunkSize, overlap int) []string {
	chunkSize, overlap = normalizeChunking(chunkSize, overlap)

	runes := []rune(text)
	step := chunkSize - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+chunkSize, len(runes))
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func normalizeChunking(chunkSize, overlap int) (int, int) {
	if chunkSize <= 0 {
		chunkSize = config.ChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return chunkSize, overlap
}

// maxChunkBytes bounds the UTF-8 size of a window of chunkSize characters.
func maxChunkBytes(chunkSize int) int {
	chunkSize, _ = normalizeChunking(chunkSize, 0)
	return chunkSize * utf8.UTFMax
}

// capChunkBytes truncates, on a rune boundary, any chunk longer than maxBytes.
func capChunkBytes(chunks []string, maxBytes int) []string {
	if maxBytes <= 0 {
		return chunks
	}
	for i, c := range chunks {
		if len(c) <= maxBytes {
			continue
		}
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(c[cut]) {
			cut--
		}
		logger.Warn("chunk exceeds byte limit, truncating", "chunk", i, "bytes", len(c), "limit", maxBytes)
		chunks[i] = c[:cut]
	}
	return chunks
}
