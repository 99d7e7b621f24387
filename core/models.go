package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored vector records.
// It is derived from content so that re-embedding a document overwrites its rows.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RecordID returns the key of the record holding chunk index of file in class.
func RecordID(className, file string, chunkIndex int) ID {
	return IDFromContent(className + "\x00" + file + "\x00" + strconv.Itoa(chunkIndex))
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	// ChatRoleUser is a message written by the end user.
	ChatRoleUser ChatRole = "user"
	// ChatRoleSystem is an instruction message.
	ChatRoleSystem ChatRole = "system"
	// ChatRoleAssistant is a message produced by the model.
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single turn of a conversation.
// A conversation is an ordered slice of messages and the order is significant.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// DocumentChunk is one ordered slice of a document's text.
// Index and Total are fixed when the chunk is produced.
type DocumentChunk struct {
	Text  string
	Index int // zero-based position in the document
	Total int // number of chunks the document produced
	File  string
}

// DocumentVectorRecord is a chunk enriched with its embedding.
type DocumentVectorRecord struct {
	Id          ID
	Text        string
	File        string
	ChunkIndex  int
	ChunkTotal  int
	TotalTokens int  // meaningful only when HasTokens is set
	HasTokens   bool // provider reported a token count for this chunk
	Vector      []float32
	InsertedAt  time.Time
}

// NewDocumentVectorRecord builds the record for chunk with the given embedding.
func NewDocumentVectorRecord(chunk DocumentChunk, vector []float32) *DocumentVectorRecord {
	return &DocumentVectorRecord{
		Text:       chunk.Text,
		File:       chunk.File,
		ChunkIndex: chunk.Index,
		ChunkTotal: chunk.Total,
		Vector:     vector,
	}
}

// WithTokens records the provider-reported token count.
func (r *DocumentVectorRecord) WithTokens(tokens int) *DocumentVectorRecord {
	r.TotalTokens = tokens
	r.HasTokens = true
	return r
}

// EmbeddingSummary is the terminal result of one document embedding run.
type EmbeddingSummary struct {
	Success             bool   `json:"success"`
	ErrorMessage        string `json:"errorMessage"`
	EmbedModel          string `json:"embedModel"`
	TextCharacterCount  int    `json:"textCharacterCount"`
	NoOfChunks          int    `json:"noOfChunks"`
	TotalDocumentTokens int    `json:"totalDocumentTokens"`
}

// FailedSummary returns the summary of a run that failed before any counts were known.
func FailedSummary(embedModel string, err error) *EmbeddingSummary {
	msg := "unknown error during document embedding"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &EmbeddingSummary{
		Success:      false,
		ErrorMessage: msg,
		EmbedModel:   embedModel,
	}
}

// SumTokens adds up per-record token counts. Records without a count contribute zero.
func SumTokens(records []*DocumentVectorRecord) int {
	total := 0
	for _, r := range records {
		if r.HasTokens {
			total += r.TotalTokens
		}
	}
	return total
}

// VectorMatch is a stored record returned by similarity search.
type VectorMatch struct {
	Record *DocumentVectorRecord
	Score  float32
}
