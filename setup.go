package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SetupAssistant creates a vector store from the given files and an assistant
// that searches it. The model is checked before anything is created. On any
// later failure the uploaded files and the vector store are deleted again.
func SetupAssistant(ctx context.Context, service VectorStoreService, settings SetupSettings, files []string) (SetupResult, error) {
	var result SetupResult

	if len(files) == 0 {
		return result, fmt.Errorf("no files found inside '%s'", settings.DataDir)
	}

	if _, err := service.GetModel(ctx, settings.Model); err != nil {
		log.Debug(fmt.Sprintf("error fetching model %s: %+v", settings.Model, err))
		return result, fmt.Errorf("error validating model %s: %w", settings.Model, err)
	}
	log.Debug(fmt.Sprintf("found %d files to upload", len(files)))

	vectorStoreId, err := service.CreateVectorStore(ctx, settings.StoreName)
	if err != nil {
		return result, fmt.Errorf("error creating vector store: %w", err)
	}
	result.VectorStoreId = vectorStoreId
	log.Debug(fmt.Sprintf("created vector store %s", vectorStoreId))

	fileIds, err := uploadFiles(ctx, service, files)
	if err != nil {
		rollbackSetup(service, vectorStoreId, fileIds)
		return result, fmt.Errorf("error uploading files: %w", err)
	}
	result.FileIds = fileIds

	batch, err := service.CreateFileBatch(ctx, vectorStoreId, fileIds)
	if err != nil {
		rollbackSetup(service, vectorStoreId, fileIds)
		return result, fmt.Errorf("error creating file batch: %w", err)
	}

	if batch.Status == BatchStatusInProgress {
		batchId := batch.ID
		batch, err = service.WaitForBatchCompletion(ctx, vectorStoreId, batchId)
		if err != nil {
			rollbackSetup(service, vectorStoreId, fileIds)
			return result, fmt.Errorf("error waiting for file batch %s: %w", batchId, err)
		}
	}
	result.Batch = batch

	if batch.Status != BatchStatusCompleted {
		rollbackSetup(service, vectorStoreId, fileIds)
		return result, fmt.Errorf("file batch %s finished with status %s", batch.ID, batch.Status)
	}

	assistantId, err := service.CreateAssistant(ctx, settings.AssistantName, settings.Instructions, settings.Model, vectorStoreId)
	if err != nil {
		rollbackSetup(service, vectorStoreId, fileIds)
		return result, fmt.Errorf("error creating assistant: %w", err)
	}
	result.AssistantId = assistantId

	return result, nil
}

// rollbackSetup deletes what a failed setup created. It runs on a fresh
// context so a cancelled setup still cleans up.
func rollbackSetup(service VectorStoreService, vectorStoreId string, fileIds []string) {
	ctx := context.Background()

	if len(fileIds) > 0 {
		if err := deleteFiles(ctx, service, fileIds); err != nil {
			log.Warn(fmt.Sprintf("error deleting %d uploaded files: %+v", len(fileIds), err))
		}
	}

	if err := service.DeleteVectorStore(ctx, vectorStoreId); err != nil {
		log.Warn(fmt.Sprintf("error deleting vector store %s: %+v", vectorStoreId, err))
	}
}
