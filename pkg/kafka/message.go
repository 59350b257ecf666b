package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/careerark/arc/pkg/models"
)

// ExtractionCompletedType is the message type the CV extraction service emits
// when it finishes parsing an upload.
const ExtractionCompletedType = "cv.extraction.completed"

// ExtractionMessage is one extraction result: the candidate batch plus the
// extraction metadata that rode along with it.
type ExtractionMessage struct {
	Type        string    `json:"type"`
	ExtractedAt time.Time `json:"extracted_at"`

	models.CandidateBatch
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string

	// Parsed content
	Extraction *ExtractionMessage
}

// IsExtractionCompleted checks whether the message is an extraction result,
// by header first, then by payload type.
func (m *IncomingMessage) IsExtractionCompleted() bool {
	if msgType := m.Headers["type"]; msgType == ExtractionCompletedType {
		return true
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Value, &probe); err != nil {
		return false
	}
	return probe.Type == ExtractionCompletedType
}

// ParseExtraction parses the message value as an extraction result.
func (m *IncomingMessage) ParseExtraction() error {
	var msg ExtractionMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.ProfileID == "" {
		return fmt.Errorf("extraction message missing profile_id")
	}
	if msg.UploadID == "" {
		return fmt.Errorf("extraction message missing upload_id")
	}
	m.Extraction = &msg
	return nil
}

// Batch returns the parsed candidate batch, or nil before ParseExtraction.
func (m *IncomingMessage) Batch() *models.CandidateBatch {
	if m.Extraction == nil {
		return nil
	}
	return &m.Extraction.CandidateBatch
}

// GetProfileID returns the profile ID from the parsed payload, falling back
// to the message header.
func (m *IncomingMessage) GetProfileID() string {
	if m.Extraction != nil && m.Extraction.ProfileID != "" {
		return m.Extraction.ProfileID
	}
	return m.Headers["profile_id"]
}

// GetUploadID returns the upload ID from the parsed payload, falling back to
// the message header.
func (m *IncomingMessage) GetUploadID() string {
	if m.Extraction != nil && m.Extraction.UploadID != "" {
		return m.Extraction.UploadID
	}
	return m.Headers["upload_id"]
}
