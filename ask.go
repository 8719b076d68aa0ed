package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// AskAssistant asks settings.Question of the assistant, waits for the run to
// finish and returns the answer. Every file citation in the answer is replaced
// by a numbered marker and resolved to the name of the cited file.
func AskAssistant(ctx context.Context, service AssistantChatService, settings AskSettings) (AskResult, error) {
	var result AskResult

	var run openai.Run
	var err error
	if settings.ThreadId == "" {
		run, err = service.CreateThreadAndRun(ctx, settings.AssistantId, settings.Question, settings.Instructions)
	} else {
		run, err = service.CreateRun(ctx, settings.ThreadId, settings.AssistantId, settings.Question, settings.Instructions)
	}
	if err != nil {
		return result, fmt.Errorf("error starting run: %w", err)
	}

	result.ThreadId = run.ThreadID
	if result.ThreadId == "" {
		result.ThreadId = settings.ThreadId
	}
	result.RunId = run.ID

	if !isRunFinished(run.Status) {
		run, err = service.WaitForRunCompletion(ctx, result.ThreadId, result.RunId)
		if err != nil {
			return result, fmt.Errorf("error waiting for run %s: %w", result.RunId, err)
		}
	}

	if run.Status != openai.RunStatusCompleted {
		if run.LastError != nil {
			return result, fmt.Errorf("run %s finished with status %s: %s", result.RunId, run.Status, run.LastError.Message)
		}
		return result, fmt.Errorf("run %s finished with status %s", result.RunId, run.Status)
	}

	messages, err := service.GetThreadMessages(ctx, result.ThreadId, result.RunId)
	if err != nil {
		return result, fmt.Errorf("error listing messages of thread %s: %w", result.ThreadId, err)
	}

	text := latestAnswer(messages)
	if text == nil {
		return result, fmt.Errorf("run %s produced no answer", result.RunId)
	}

	result.Answer, result.Citations = resolveCitations(ctx, service, *text)
	return result, nil
}

// latestAnswer returns the first text content of the newest assistant message.
func latestAnswer(messages []openai.Message) *openai.MessageText {
	for _, message := range messages {
		if message.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		for _, content := range message.Content {
			if content.Text != nil {
				return content.Text
			}
		}
	}
	return nil
}

// resolveCitations replaces the annotated spans of the answer. File citations
// become [n] markers; other annotations are removed. A file whose name cannot
// be retrieved is listed by its ID.
func resolveCitations(ctx context.Context, service AssistantChatService, text openai.MessageText) (string, []Citation) {
	answer := text.Value
	citations := []Citation{}
	names := map[string]string{}

	for i, raw := range text.Annotations {
		annotation, err := decodeAnnotation(raw)
		if err != nil {
			log.Debug(fmt.Sprintf("skipping annotation %d: %+v", i, err))
			continue
		}

		if annotation.FileCitation == nil {
			if annotation.Text != "" {
				answer = strings.Replace(answer, annotation.Text, "", 1)
			}
			continue
		}

		index := len(citations) + 1
		if annotation.Text != "" {
			answer = strings.Replace(answer, annotation.Text, fmt.Sprintf(" [%d]", index), 1)
		}

		fileId := annotation.FileCitation.FileId
		name, ok := names[fileId]
		if !ok {
			name, err = service.GetFileName(ctx, fileId)
			if err != nil {
				log.Debug(fmt.Sprintf("error retrieving file %s: %+v", fileId, err))
				name = fileId
			}
			names[fileId] = name
		}
		log.Debug(fmt.Sprintf("citation [%d]: %s", index, name))

		citations = append(citations, Citation{
			Index:    index,
			FileId:   fileId,
			FileName: name,
		})
	}

	return answer, citations
}

func decodeAnnotation(raw any) (messageAnnotation, error) {
	var annotation messageAnnotation
	data, err := json.Marshal(raw)
	if err != nil {
		return annotation, err
	}
	err = json.Unmarshal(data, &annotation)
	return annotation, err
}
