package main

import (
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultDataDir      = "data_files"
	DefaultPollInterval = 3 * time.Second
)

// DefaultRunPollInterval is the interval between run status checks.
const DefaultRunPollInterval = time.Second

type Config struct {
	AccessToken string `json:"accessToken" validate:"required"`
	AssistantId string `json:"assistantId" validate:"required"`
	DataDir     string `json:"dataDir,omitempty"`
}

type ChatGPTCredentials struct {
	Secret  string `json:"secret"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// UploadSettings holds the resolved inputs of a single add-file run.
type UploadSettings struct {
	AssistantId   string        `validate:"required"`
	DataDir       string        `validate:"required"`
	FileName      string        `validate:"required"`
	VectorStoreId string        // optional, must be attached to the assistant when set
	Strict        bool          // refuse to pick between several vector stores
	PollInterval  time.Duration `validate:"gt=0"`
}

type SetupSettings struct {
	DataDir       string        `validate:"required"`
	StoreName     string        `validate:"required"`
	AssistantName string        `validate:"required"`
	Model         string        `validate:"required"`
	Instructions  string        `validate:"required"`
	PollInterval  time.Duration `validate:"gt=0"`
}

type UploadResult struct {
	AssistantId   string
	VectorStoreId string
	FileId        string
	Batch         openai.VectorStoreFileBatch
}

type SetupResult struct {
	VectorStoreId string
	AssistantId   string
	FileIds       []string
	Batch         openai.VectorStoreFileBatch
}

// FileCounts returns the file-count summary of the batch as reported by the API.
func (r UploadResult) FileCounts() openai.VectorStoreFileCount {
	return r.Batch.FileCounts
}

// AskSettings holds the inputs of a single question to an assistant. Without
// a ThreadId a new thread is started.
type AskSettings struct {
	AssistantId  string        `validate:"required"`
	Question     string        `validate:"required"`
	ThreadId     string        // optional, continues an existing conversation
	Instructions string        // optional, appended to the assistant's instructions
	PollInterval time.Duration `validate:"gt=0"`
}

type Citation struct {
	Index    int
	FileId   string
	FileName string
}

type AskResult struct {
	ThreadId  string
	RunId     string
	Answer    string
	Citations []Citation
}

// messageAnnotation is the part of a message text annotation needed to
// resolve citations. go-openai leaves annotations undecoded.
type messageAnnotation struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	FileCitation *struct {
		FileId string `json:"file_id"`
	} `json:"file_citation,omitempty"`
}
