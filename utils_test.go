package main

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// TestIsValidDir tests the isValidDir function to ensure it correctly identifies
// valid and invalid directory paths. It runs a series of subtests with different
// directory paths and checks if the function's output matches the expected result.
// The test cases include:
// - A valid directory
// - A valid nested directory
// - An invalid directory (a file)
// - An invalid directory (non-existent)
func TestIsValidDir(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "valid directory",
			path: "tests",
			want: true,
		},
		{
			name: "valid directory nested",
			path: filepath.Join("tests", "data_files"),
			want: true,
		},
		{
			name: "invalid directory file",
			path: "main.go",
			want: false,
		},
		{
			name: "invalid directory non existent",
			path: "invalid",
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := isValidDir(test.path)
			if got != test.want {
				t.Errorf("got: %v, want: %v", got, test.want)
			}
		})
	}
}

func TestIsValidFile(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "regular file",
			path: filepath.Join("tests", "data_files", "onboarding.md"),
			want: true,
		},
		{
			name: "file name with spaces",
			path: filepath.Join("tests", "data_files", "Project Approval Framework.txt"),
			want: true,
		},
		{
			name: "directory",
			path: filepath.Join("tests", "data_files"),
			want: false,
		},
		{
			name: "non existent",
			path: filepath.Join("tests", "data_files", "missing.pdf"),
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := isValidFile(test.path)
			if got != test.want {
				t.Errorf("got: %v, want: %v", got, test.want)
			}
		})
	}
}

// TestGetCliInput tests the getCliInput function by simulating user input from a buffered reader.
// It verifies that the function correctly reads the input and processes it using the provided action function.
func TestGetCliInput(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("test cli input\r\n"))
	action := func(value string) (string, error) {
		return value, nil
	}

	output, err := getCliInput(reader, "Test prompt: ", action)
	if err != nil {
		t.Fatal(err)
	}

	if output != "test cli input" {
		t.Errorf("got: %s, want: %s", output, "test cli input")
	}
}

// TestGetCliInputWithAction tests the getCliInput function by simulating
// user input and applying an action function to the input. It verifies
// that the output matches the expected result after the action is applied.
func TestGetCliInputWithAction(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("test cli input\n"))
	action := func(value string) (string, error) {
		return value + " plus some extra", nil
	}

	output, err := getCliInput(reader, "Test prompt: ", action)
	if err != nil {
		t.Fatal(err)
	}

	if output != "test cli input plus some extra" {
		t.Errorf("got: %s, want: %s", output, "test cli input plus some extra")
	}
}

// TestGetCliInputWithError tests the getCliInput function to ensure it correctly handles
// an error returned by the provided action function.
func TestGetCliInputWithError(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("test cli input\n"))
	action := func(value string) (string, error) {
		return value, fmt.Errorf("test error")
	}

	_, err := getCliInput(reader, "Test prompt: ", action)
	if err == nil {
		t.Fatal("expected an error, but got nil")
	}

	if err.Error() != "test error" {
		t.Errorf("got: %s, want: %s", err.Error(), "test error")
	}
}

// TestIsAllowedFile tests the isAllowedFile function to ensure it correctly
// identifies whether a given filename can be indexed by file_search.
func TestIsAllowedFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{
			name:     "allowed pdf",
			filename: "Project Approval Framework.pdf",
			want:     true,
		},
		{
			name:     "allowed upper case extension",
			filename: "REPORT.PDF",
			want:     true,
		},
		{
			name:     "allowed file with dir",
			filename: "data_files/notes.md",
			want:     true,
		},
		{
			name:     "disallowed image",
			filename: "diagram.png",
			want:     false,
		},
		{
			name:     "disallowed csv",
			filename: "data.csv",
			want:     false,
		},
		{
			name:     "disallowed hidden file",
			filename: ".hidden.txt",
			want:     false,
		},
		{
			name:     "disallowed no extension",
			filename: "Makefile",
			want:     false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := isAllowedFile(test.filename)
			if got != test.want {
				t.Errorf("got: %v, want: %v", got, test.want)
			}
		})
	}
}

// TestGetFilesToUpload checks that only the supported regular files directly
// inside the data directory are returned, in sorted order.
func TestGetFilesToUpload(t *testing.T) {
	toUpload, err := getFilesToUpload(filepath.Join("tests", "data_files"))
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{
		filepath.Join("tests", "data_files", "Project Approval Framework.txt"),
		filepath.Join("tests", "data_files", "onboarding.md"),
	}
	if !slices.Equal(toUpload, expected) {
		t.Errorf("got: %v, want: %v", toUpload, expected)
	}
}

// TestGetFilesToUploadReportsSkipped checks that unsupported files are
// reported at info level while hidden files are skipped quietly.
func TestGetFilesToUploadReportsSkipped(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(func() {
		log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
	})

	if _, err := getFilesToUpload(filepath.Join("tests", "data_files")); err != nil {
		t.Fatal(err)
	}

	skipped := []string{}
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.InfoLevel {
			skipped = append(skipped, entry.Message)
		}
	}

	if len(skipped) != 1 || !strings.HasPrefix(skipped[0], "skipping diagram.png") {
		t.Fatalf("expected diagram.png to be reported, got %q", skipped)
	}
}

func TestGetFilesToUploadMissingDir(t *testing.T) {
	if _, err := getFilesToUpload(filepath.Join("tests", "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestUploadFiles(t *testing.T) {
	service := newFakeService("vs_first")
	paths := []string{
		filepath.Join("tests", "data_files", "Project Approval Framework.txt"),
		filepath.Join("tests", "data_files", "onboarding.md"),
	}

	fileIds, err := uploadFiles(context.Background(), service, paths)
	if err != nil {
		t.Fatal(err)
	}

	slices.Sort(fileIds)
	expected := []string{"file_Project Approval Framework.txt", "file_onboarding.md"}
	if !slices.Equal(fileIds, expected) {
		t.Errorf("got: %v, want: %v", fileIds, expected)
	}
}

func TestUploadFilesError(t *testing.T) {
	service := newFakeService("vs_first")
	service.failUpload = "onboarding.md"
	paths := []string{
		filepath.Join("tests", "data_files", "Project Approval Framework.txt"),
		filepath.Join("tests", "data_files", "onboarding.md"),
	}

	_, err := uploadFiles(context.Background(), service, paths)
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "onboarding.md") {
		t.Errorf("expected error to name the failed file, got %s", err.Error())
	}
}

func TestDeleteFiles(t *testing.T) {
	service := newFakeService("vs_first")

	if err := deleteFiles(context.Background(), service, []string{"file_1", "file_2", "file_3"}); err != nil {
		t.Fatal(err)
	}

	slices.Sort(service.deleted)
	if !slices.Equal(service.deleted, []string{"file_1", "file_2", "file_3"}) {
		t.Errorf("unexpected deleted files %v", service.deleted)
	}
}
