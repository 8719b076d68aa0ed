package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// AddFile uploads settings.FileName from settings.DataDir into the vector store
// attached to the configured assistant and waits until it has been indexed.
// It never prints: every failure is returned as an *UploadError so callers
// decide how to present it.
func AddFile(ctx context.Context, service VectorStoreService, settings UploadSettings) (UploadResult, error) {
	result, err := FindVectorStore(ctx, service, settings)
	if err != nil {
		return result, err
	}
	return UploadToVectorStore(ctx, service, settings, result)
}

// FindVectorStore retrieves the assistant and selects the vector store that
// receives the file. Nothing is uploaded.
func FindVectorStore(ctx context.Context, service VectorStoreService, settings UploadSettings) (UploadResult, error) {
	result := UploadResult{
		AssistantId: settings.AssistantId,
	}

	assistant, err := service.GetAssistant(ctx, settings.AssistantId)
	if err != nil {
		log.Debug(fmt.Sprintf("error retrieving assistant %s: %+v", settings.AssistantId, err))
		return result, &UploadError{
			Kind:    UploadErrorRetrieval,
			Subject: settings.AssistantId,
			Err:     err,
		}
	}

	vectorStoreId, err := selectVectorStore(assistant, settings)
	if err != nil {
		return result, err
	}
	result.VectorStoreId = vectorStoreId
	log.Debug(fmt.Sprintf("found vector store %s on assistant %s", vectorStoreId, assistant.ID))

	return result, nil
}

// UploadToVectorStore uploads the local file into result.VectorStoreId, as
// found by FindVectorStore, and waits until the batch is finished.
func UploadToVectorStore(ctx context.Context, service VectorStoreService, settings UploadSettings, result UploadResult) (UploadResult, error) {
	vectorStoreId := result.VectorStoreId

	path := filepath.Join(settings.DataDir, settings.FileName)
	if !isValidFile(path) {
		return result, &UploadError{
			Kind:    UploadErrorFileNotFound,
			Subject: settings.FileName,
			Dir:     settings.DataDir,
		}
	}

	file, err := os.Open(path)
	if err != nil {
		log.Debug(fmt.Sprintf("error opening file %s: %+v", path, err))
		return result, &UploadError{
			Kind:    UploadErrorFileNotFound,
			Subject: settings.FileName,
			Dir:     settings.DataDir,
			Err:     err,
		}
	}
	defer file.Close()

	fileId, batch, err := service.UploadAndPoll(ctx, vectorStoreId, filepath.Base(path), file)
	result.FileId = fileId
	result.Batch = batch
	if err != nil {
		return result, &UploadError{
			Kind:    UploadErrorUpload,
			Subject: settings.FileName,
			Err:     err,
		}
	}

	if batch.Status != BatchStatusCompleted {
		return result, &UploadError{
			Kind:    UploadErrorUpload,
			Subject: settings.FileName,
			Err:     fmt.Errorf("file batch %s finished with status %s (file counts %+v)", batch.ID, batch.Status, batch.FileCounts),
		}
	}

	return result, nil
}

// selectVectorStore picks the vector store the file is uploaded into. Without
// an explicit choice the first attached store is used; Strict turns a choice
// between several stores into an error instead.
func selectVectorStore(assistant openai.Assistant, settings UploadSettings) (string, error) {
	if assistant.ToolResources == nil || assistant.ToolResources.FileSearch == nil {
		return "", &UploadError{
			Kind:    UploadErrorNoFileSearch,
			Subject: settings.AssistantId,
		}
	}

	ids := assistant.ToolResources.FileSearch.VectorStoreIDs
	if len(ids) == 0 {
		return "", &UploadError{
			Kind:    UploadErrorNoVectorStore,
			Subject: settings.AssistantId,
		}
	}

	if settings.VectorStoreId != "" {
		if !slices.Contains(ids, settings.VectorStoreId) {
			return "", &UploadError{
				Kind:    UploadErrorNoVectorStore,
				Subject: settings.AssistantId,
				Err:     fmt.Errorf("vector store %s is not attached", settings.VectorStoreId),
			}
		}
		return settings.VectorStoreId, nil
	}

	if len(ids) > 1 {
		if settings.Strict {
			return "", &UploadError{
				Kind:    UploadErrorAmbiguousVectorStore,
				Subject: settings.AssistantId,
				Err:     fmt.Errorf("choose one of %s", strings.Join(ids, ", ")),
			}
		}
		log.Warn(fmt.Sprintf("assistant %s has %d vector stores attached, using %s (ignoring %s)",
			settings.AssistantId, len(ids), ids[0], strings.Join(ids[1:], ", ")))
	}

	return ids[0], nil
}
