package main

import "fmt"

type InvalidConfigFileError struct {
	Path string
}

func (e InvalidConfigFileError) Error() string {
	return fmt.Sprintf("error loading config file at provided path %s", e.Path)
}

type ConfigFileNotFoundError struct {
	Path string
}

func (e ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("cannot find config file at provided path %s", e.Path)
}

type ChatGPTErrorType string

const (
	ChatGPTErrorTypeAuth ChatGPTErrorType = "authentication"
	ChatGPTErrorTypeAPI  ChatGPTErrorType = "api"
)

type ChatGPTError struct {
	Code    int
	Message string
	Type    ChatGPTErrorType
}

func (e ChatGPTError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("received ChatGPT error type %s: status code %d: %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("received ChatGPT error type %s: status code %d", e.Type, e.Code)
}

// UploadErrorKind classifies why an add-file run stopped before
// (or while) uploading.
type UploadErrorKind string

const (
	UploadErrorRetrieval            UploadErrorKind = "retrieval"
	UploadErrorNoFileSearch         UploadErrorKind = "no_file_search"
	UploadErrorNoVectorStore        UploadErrorKind = "no_vector_store"
	UploadErrorAmbiguousVectorStore UploadErrorKind = "ambiguous_vector_store"
	UploadErrorFileNotFound         UploadErrorKind = "file_not_found"
	UploadErrorUpload               UploadErrorKind = "upload"
)

type UploadError struct {
	Kind UploadErrorKind
	// Subject is the assistant id, vector store id or file name the
	// error refers to, depending on Kind.
	Subject string
	Dir     string
	Err     error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadErrorRetrieval:
		return fmt.Sprintf("error retrieving assistant %s: %v", e.Subject, e.Err)
	case UploadErrorNoFileSearch:
		return fmt.Sprintf("could not find file_search resources on assistant %s", e.Subject)
	case UploadErrorNoVectorStore:
		if e.Err != nil {
			return fmt.Sprintf("assistant %s has no file storage attached: %v", e.Subject, e.Err)
		}
		return fmt.Sprintf("assistant %s has no file storage attached", e.Subject)
	case UploadErrorAmbiguousVectorStore:
		return fmt.Sprintf("assistant %s has more than one vector store attached: %v", e.Subject, e.Err)
	case UploadErrorFileNotFound:
		return fmt.Sprintf("could not find '%s' inside '%s'", e.Subject, e.Dir)
	default:
		return fmt.Sprintf("upload of %s failed: %v", e.Subject, e.Err)
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
