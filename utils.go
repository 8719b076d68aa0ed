package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUploads bounds the number of in-flight file uploads.
const maxConcurrentUploads = 5

// configureLogging takes a log level in string format
// and configures the sirupsen/logrus package. the provided
// log level string is case insensitive.
func configureLogging(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// isValidDir takes a target directory path and checks
// that the path exists, and that the path corresponds
// to a directory.
func isValidDir(target string) bool {
	stat, err := os.Stat(target)
	return err == nil && stat.IsDir()
}

// isValidFile reports whether target exists and is a regular file.
func isValidFile(target string) bool {
	stat, err := os.Stat(target)
	return err == nil && stat.Mode().IsRegular()
}

// getDefaultConfigPath retrieves the default config path
// based on the provided OS (usually this is ~/.vsupload/config.json).
// os.UserHomeDir is used to find the root directory for the
// specified user.
func getDefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".vsupload", "config.json")
}

// getCliInput retrieves a given value from std using the
// provided CLI. A follow on action can be optionally provided
func getCliInput(reader *bufio.Reader, prompt string, action func(value string) (string, error)) (string, error) {
	fmt.Print(prompt)
	// read value from stdin and remove line break characters
	value, _ := reader.ReadString('\n')
	value = strings.TrimRight(value, "\r\n")

	// execute post action and return function
	return action(value)
}

// isAllowedFile checks if the given filename has an extension accepted by
// the file_search tool. Hidden files are never allowed.
func isAllowedFile(filename string) bool {
	if strings.HasPrefix(filepath.Base(filename), ".") {
		return false
	}

	allowedExtensions := []string{
		".c",
		".cpp",
		".cs",
		".css",
		".doc",
		".docx",
		".go",
		".html",
		".java",
		".js",
		".json",
		".md",
		".pdf",
		".php",
		".pptx",
		".py",
		".rb",
		".sh",
		".tex",
		".ts",
		".txt",
	}

	return slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(filename)))
}

// getFilesToUpload lists the regular files directly inside path that the
// file_search tool can index. Sub-directories are not walked and every
// unsupported file is reported at info level.
//
// Parameters:
//   - path: The directory path where the files are located.
//
// Returns:
//   - []string: The sorted paths of the files to upload.
//   - error: An error if the directory cannot be read.
func getFilesToUpload(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, entry := range entries {
		// if entry is a directory, skip
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			log.Debug(fmt.Sprintf("skipping hidden file %s", entry.Name()))
			continue
		}
		// if entry is not in the allowed file types, skip
		if !isAllowedFile(entry.Name()) {
			log.Info(fmt.Sprintf("skipping %s: file type not supported by file_search", entry.Name()))
			continue
		}
		log.Debug(fmt.Sprintf("adding file %s", entry.Name()))
		files = append(files, filepath.Join(path, entry.Name()))
	}

	slices.Sort(files)
	return files, nil
}

// uploadFiles uploads multiple files concurrently using the provided service.
// At most maxConcurrentUploads uploads are in flight; the first error cancels
// the remaining ones.
//
// Parameters:
//   - service: The VectorStoreService used to upload the files.
//   - paths: The local paths of the files to be uploaded.
//
// Returns:
//   - A slice of strings containing the file IDs of the successfully uploaded
//     files, also when an error is returned.
//   - The first error that occurred during the upload process.
func uploadFiles(ctx context.Context, service VectorStoreService, paths []string) ([]string, error) {
	var mu sync.Mutex
	fileIds := []string{}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentUploads)

	for _, path := range paths {
		group.Go(func() error {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			fileId, err := service.UploadFile(groupCtx, filepath.Base(path), file)
			if err != nil {
				return fmt.Errorf("error uploading %s: %w", path, err)
			}

			mu.Lock()
			fileIds = append(fileIds, fileId)
			mu.Unlock()
			return nil
		})
	}

	err := group.Wait()
	return fileIds, err
}

// deleteFiles deletes the given files concurrently. Every deletion is
// attempted; the returned error joins all failures.
func deleteFiles(ctx context.Context, service VectorStoreService, fileIds []string) error {
	var mu sync.Mutex
	errs := []error{}

	var group errgroup.Group
	group.SetLimit(maxConcurrentUploads)

	for _, fid := range fileIds {
		group.Go(func() error {
			if err := service.DeleteFile(ctx, fid); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("error deleting file %s: %w", fid, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()

	return errors.Join(errs...)
}
