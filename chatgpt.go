package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusCancelled  = "cancelled"
	BatchStatusFailed     = "failed"
)

// NewChatGPTError normalises an error returned by the go-openai client
// into a ChatGPTError. Transport errors that never reached the API are
// returned unchanged.
func NewChatGPTError(err error) error {
	if err == nil {
		return nil
	}

	gptError := ChatGPTError{}
	var apiErr *openai.APIError
	var requestErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		gptError.Code = apiErr.HTTPStatusCode
		gptError.Message = apiErr.Message
	case errors.As(err, &requestErr):
		gptError.Code = requestErr.HTTPStatusCode
		gptError.Message = requestErr.Error()
	default:
		return err
	}
	// add error type to error interface
	if gptError.Code == http.StatusUnauthorized {
		gptError.Type = ChatGPTErrorTypeAuth
	} else {
		gptError.Type = ChatGPTErrorTypeAPI
	}
	return gptError
}

// NewChatGPTAssistantClient builds the single client used for the lifetime of
// the process. go-openai pins the Assistants v2 API, so there is no call shape
// to negotiate at runtime.
func NewChatGPTAssistantClient(credentials ChatGPTCredentials) *ChatGPTAssistantClient {
	config := openai.DefaultConfig(credentials.Secret)
	if credentials.BaseURL != "" {
		config.BaseURL = credentials.BaseURL
	}

	return &ChatGPTAssistantClient{
		Credentials:  credentials,
		PollInterval: DefaultPollInterval,
		api:          openai.NewClientWithConfig(config),
	}
}

type VectorStoreService interface {
	VerifyCredentials(ctx context.Context) error
	GetModel(ctx context.Context, model string) (openai.Model, error)
	GetAssistant(ctx context.Context, id string) (openai.Assistant, error)
	CreateAssistant(ctx context.Context, name, instructions, model, vectorStoreId string) (string, error)
	GetVectorStore(ctx context.Context, id string) (openai.VectorStore, error)
	CreateVectorStore(ctx context.Context, name string) (string, error)
	DeleteVectorStore(ctx context.Context, id string) error
	UploadFile(ctx context.Context, filename string, content io.Reader) (string, error)
	DeleteFile(ctx context.Context, id string) error
	CreateFileBatch(ctx context.Context, vectorStoreId string, fileIds []string) (openai.VectorStoreFileBatch, error)
	WaitForBatchCompletion(ctx context.Context, vectorStoreId, batchId string) (openai.VectorStoreFileBatch, error)
	UploadAndPoll(ctx context.Context, vectorStoreId, filename string, content io.Reader) (string, openai.VectorStoreFileBatch, error)
}

type ChatGPTAssistantClient struct {
	Credentials  ChatGPTCredentials
	PollInterval time.Duration
	api          *openai.Client
}

// VerifyCredentials checks the validity of the client's credentials by listing
// the models available to the key. If the credentials are valid, the function
// returns nil. Otherwise, it returns an error indicating the failure reason.
func (client *ChatGPTAssistantClient) VerifyCredentials(ctx context.Context) error {
	if _, err := client.api.ListModels(ctx); err != nil {
		return NewChatGPTError(err)
	}
	return nil
}

// GetModel retrieves the details of a specific model from the ChatGPT API.
func (client *ChatGPTAssistantClient) GetModel(ctx context.Context, model string) (openai.Model, error) {
	modelData, err := client.api.GetModel(ctx, model)
	if err != nil {
		return modelData, NewChatGPTError(err)
	}
	return modelData, nil
}

// GetAssistant retrieves an assistant by its ID from the ChatGPT API.
//
// Parameters:
//   - id: The unique identifier of the assistant to retrieve.
//
// Returns:
//   - openai.Assistant: The assistant object, including its tool resources.
//   - error: A ChatGPTError if the API rejected the request, or the transport error.
func (client *ChatGPTAssistantClient) GetAssistant(ctx context.Context, id string) (openai.Assistant, error) {
	assistant, err := client.api.RetrieveAssistant(ctx, id)
	if err != nil {
		return assistant, NewChatGPTError(err)
	}
	log.Debug(fmt.Sprintf("retrieved assistant %s", assistant.ID))
	return assistant, nil
}

// CreateAssistant creates a new assistant with the file_search tool enabled and
// bound to the given vector store.
//
// Parameters:
//   - name: The name of the assistant.
//   - instructions: The system instructions of the assistant.
//   - model: The model to be used by the assistant.
//   - vectorStoreId: The ID of the vector store to be used for file search.
//
// Returns:
//   - string: The ID of the created assistant.
//   - error: An error if the request fails.
func (client *ChatGPTAssistantClient) CreateAssistant(ctx context.Context, name, instructions, model, vectorStoreId string) (string, error) {
	request := openai.AssistantRequest{
		Model:        model,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{
				Type: openai.AssistantToolTypeFileSearch,
			},
		},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: []string{vectorStoreId},
			},
		},
	}

	assistant, err := client.api.CreateAssistant(ctx, request)
	if err != nil {
		return "", NewChatGPTError(err)
	}
	return assistant.ID, nil
}

// GetVectorStore retrieves a vector store, including its aggregate file counts.
func (client *ChatGPTAssistantClient) GetVectorStore(ctx context.Context, id string) (openai.VectorStore, error) {
	vectorStore, err := client.api.RetrieveVectorStore(ctx, id)
	if err != nil {
		return vectorStore, NewChatGPTError(err)
	}
	return vectorStore, nil
}

// CreateVectorStore creates a new vector store with the given name and
// returns its ID.
func (client *ChatGPTAssistantClient) CreateVectorStore(ctx context.Context, name string) (string, error) {
	vectorStore, err := client.api.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name: name,
	})
	if err != nil {
		return "", NewChatGPTError(err)
	}
	return vectorStore.ID, nil
}

func (client *ChatGPTAssistantClient) DeleteVectorStore(ctx context.Context, id string) error {
	if _, err := client.api.DeleteVectorStore(ctx, id); err != nil {
		return NewChatGPTError(err)
	}
	return nil
}

// UploadFile uploads the content as a file with purpose "assistants" and
// returns the ID of the new file.
func (client *ChatGPTAssistantClient) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	file, err := client.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    filename,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", NewChatGPTError(err)
	}
	log.Debug(fmt.Sprintf("uploaded file %s as %s (%d bytes)", filename, file.ID, len(data)))
	return file.ID, nil
}

func (client *ChatGPTAssistantClient) DeleteFile(ctx context.Context, id string) error {
	if err := client.api.DeleteFile(ctx, id); err != nil {
		return NewChatGPTError(err)
	}
	return nil
}

// CreateFileBatch attaches already uploaded files to a vector store as a
// single batch. The returned batch is usually still in progress.
func (client *ChatGPTAssistantClient) CreateFileBatch(ctx context.Context, vectorStoreId string, fileIds []string) (openai.VectorStoreFileBatch, error) {
	batch, err := client.api.CreateVectorStoreFileBatch(ctx, vectorStoreId, openai.VectorStoreFileBatchRequest{
		FileIDs: fileIds,
	})
	if err != nil {
		return batch, NewChatGPTError(err)
	}
	return batch, nil
}

// WaitForBatchCompletion waits for the completion of a vector store file batch.
// It polls the ChatGPT API every PollInterval until the batch status is
// "completed", "cancelled" or "failed", or until ctx is done.
//
// Parameters:
//   - vectorStoreId: The ID of the vector store owning the batch.
//   - batchId: The ID of the batch to wait for.
//
// Returns:
//   - openai.VectorStoreFileBatch: The final state of the batch.
//   - error: An error if a request fails or the context is cancelled.
func (client *ChatGPTAssistantClient) WaitForBatchCompletion(ctx context.Context, vectorStoreId, batchId string) (openai.VectorStoreFileBatch, error) {
	interval := client.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		batch, err := client.api.RetrieveVectorStoreFileBatch(ctx, vectorStoreId, batchId)
		if err != nil {
			return batch, NewChatGPTError(err)
		}
		log.Debug(fmt.Sprintf("file batch %s status %s: %+v", batchId, batch.Status, batch.FileCounts))

		switch batch.Status {
		case BatchStatusCompleted, BatchStatusCancelled, BatchStatusFailed:
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// UploadAndPoll uploads a single file, adds it to the vector store as a file
// batch and blocks until the batch is indexed. If the batch cannot be created
// the uploaded file is deleted so it is not left orphaned.
func (client *ChatGPTAssistantClient) UploadAndPoll(ctx context.Context, vectorStoreId, filename string, content io.Reader) (string, openai.VectorStoreFileBatch, error) {
	var batch openai.VectorStoreFileBatch

	fileId, err := client.UploadFile(ctx, filename, content)
	if err != nil {
		return "", batch, err
	}

	batch, err = client.CreateFileBatch(ctx, vectorStoreId, []string{fileId})
	if err != nil {
		if deleteErr := client.DeleteFile(context.WithoutCancel(ctx), fileId); deleteErr != nil {
			log.Warn(fmt.Sprintf("error deleting orphaned file %s: %+v", fileId, deleteErr))
		}
		return fileId, batch, err
	}

	if batch.Status != BatchStatusInProgress {
		return fileId, batch, nil
	}

	batch, err = client.WaitForBatchCompletion(ctx, vectorStoreId, batch.ID)
	return fileId, batch, err
}

// AssistantChatService asks questions of an assistant through threads and
// runs.
type AssistantChatService interface {
	CreateThreadAndRun(ctx context.Context, assistantId, question, instructions string) (openai.Run, error)
	CreateRun(ctx context.Context, threadId, assistantId, question, instructions string) (openai.Run, error)
	WaitForRunCompletion(ctx context.Context, threadId, runId string) (openai.Run, error)
	GetThreadMessages(ctx context.Context, threadId, runId string) ([]openai.Message, error)
	GetFileName(ctx context.Context, fileId string) (string, error)
}

// CreateThreadAndRun creates a new thread holding the question as its only
// user message and starts a run of the assistant on it.
//
// Parameters:
//   - assistantId: The ID of the assistant that answers the question.
//   - question: The user message added to the new thread.
//   - instructions: Instructions appended to the assistant's own for this run only.
//
// Returns:
//   - openai.Run: The created run, usually still queued.
//   - error: An error object if there was an issue creating or running the thread.
func (client *ChatGPTAssistantClient) CreateThreadAndRun(ctx context.Context, assistantId, question, instructions string) (openai.Run, error) {
	run, err := client.api.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{
			AssistantID:            assistantId,
			AdditionalInstructions: instructions,
		},
		Thread: openai.ThreadRequest{
			Messages: []openai.ThreadMessage{
				{
					Role:    openai.ThreadMessageRoleUser,
					Content: question,
				},
			},
		},
	})
	if err != nil {
		return run, NewChatGPTError(err)
	}
	log.Debug(fmt.Sprintf("started run %s on new thread %s", run.ID, run.ThreadID))
	return run, nil
}

// CreateRun adds the question to an existing thread and starts a run of the
// assistant on it.
func (client *ChatGPTAssistantClient) CreateRun(ctx context.Context, threadId, assistantId, question, instructions string) (openai.Run, error) {
	_, err := client.api.CreateMessage(ctx, threadId, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: question,
	})
	if err != nil {
		return openai.Run{}, NewChatGPTError(err)
	}

	run, err := client.api.CreateRun(ctx, threadId, openai.RunRequest{
		AssistantID:            assistantId,
		AdditionalInstructions: instructions,
	})
	if err != nil {
		return run, NewChatGPTError(err)
	}
	log.Debug(fmt.Sprintf("started run %s on thread %s", run.ID, threadId))
	return run, nil
}

// WaitForRunCompletion waits for the completion of a thread run with the given runId.
// It polls the ChatGPT API every PollInterval until the run reaches a terminal
// status or until ctx is done.
//
// Parameters:
//   - threadId: The ID of the thread owning the run.
//   - runId: The ID of the thread run to wait for.
//
// Returns:
//   - openai.Run: The final state of the thread run.
//   - error: An error if a request fails or the context is cancelled.
func (client *ChatGPTAssistantClient) WaitForRunCompletion(ctx context.Context, threadId, runId string) (openai.Run, error) {
	interval := client.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		run, err := client.api.RetrieveRun(ctx, threadId, runId)
		if err != nil {
			return run, NewChatGPTError(err)
		}
		log.Debug(fmt.Sprintf("run %s status %s", runId, run.Status))

		if isRunFinished(run.Status) {
			return run, nil
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// GetThreadMessages lists the messages of a thread, newest first. When runId
// is set only the messages created by that run are returned.
func (client *ChatGPTAssistantClient) GetThreadMessages(ctx context.Context, threadId, runId string) ([]openai.Message, error) {
	order := "desc"
	var runFilter *string
	if runId != "" {
		runFilter = &runId
	}

	messages, err := client.api.ListMessage(ctx, threadId, nil, &order, nil, nil, runFilter)
	if err != nil {
		return nil, NewChatGPTError(err)
	}
	return messages.Messages, nil
}

// GetFileName returns the file name an uploaded file was created with.
func (client *ChatGPTAssistantClient) GetFileName(ctx context.Context, fileId string) (string, error) {
	file, err := client.api.GetFile(ctx, fileId)
	if err != nil {
		return "", NewChatGPTError(err)
	}
	return file.FileName, nil
}

// isRunFinished reports whether a run can no longer change status without
// user action.
func isRunFinished(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		return false
	}
	return true
}
