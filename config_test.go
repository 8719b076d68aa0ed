package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig tests the loadConfig function to ensure it correctly loads
// configuration from a JSON file and populates the Config struct fields.
// It checks for the following:
// - AccessToken should be "TestToken"
// - AssistantId should be "assistant_test-id"
// - DataDir should be "tests/data_files"
// If any of these conditions are not met, the test will fail.
func TestLoadConfig(t *testing.T) {
	config, err := loadConfig("tests/config.json")
	if err != nil {
		t.Fatal(err)
	}

	if config.AccessToken != "TestToken" {
		t.Fatalf("expected access token %s, got %s", "TestToken", config.AccessToken)
	}

	if config.AssistantId != "assistant_test-id" {
		t.Fatalf("expected assistant id %s, got %s", "assistant_test-id", config.AssistantId)
	}

	if config.DataDir != "tests/data_files" {
		t.Fatalf("expected data dir %s, got %s", "tests/data_files", config.DataDir)
	}
}

// TestLoadConfigDefaultDataDir checks that a config without a data
// directory falls back to data_files.
func TestLoadConfigDefaultDataDir(t *testing.T) {
	config, err := loadConfig("tests/no_data_dir_config.json")
	if err != nil {
		t.Fatal(err)
	}

	if config.DataDir != DefaultDataDir {
		t.Fatalf("expected data dir %s, got %s", DefaultDataDir, config.DataDir)
	}
}

// TestLoadConfigPartial tests the loadConfig function with a partial configuration file.
// It expects an error to be returned when loading a partial config file.
// The test checks if the error is of type InvalidConfigFileError.
func TestLoadConfigPartial(t *testing.T) {
	_, err := loadConfig("tests/partial_config.json")
	if err == nil {
		t.Fatal("expected error while loading partial config")
	}

	var invalidConfigErr InvalidConfigFileError
	if !errors.As(err, &invalidConfigErr) {
		t.Fatalf("expected InvalidConfigFileError, got %+v", err)
	}
}

func TestLoadConfigDirectory(t *testing.T) {
	_, err := loadConfig("tests")
	var invalidConfigErr InvalidConfigFileError
	if !errors.As(err, &invalidConfigErr) {
		t.Fatalf("expected InvalidConfigFileError, got %+v", err)
	}
}

// TestLoadConfigNotFound tests the loadConfig function to ensure it returns an error
// when attempting to load a configuration file that does not exist. It verifies that
// the error returned is of type ConfigFileNotFoundError.
func TestLoadConfigNotFound(t *testing.T) {
	_, err := loadConfig("tests/not_found_config.json")
	if err == nil {
		t.Fatal("expected error while loading not found config")
	}

	var configNotFound ConfigFileNotFoundError
	if !errors.As(err, &configNotFound) {
		t.Fatalf("expected ConfigFileNotFoundError, got %+v", err)
	}
}

// TestLoadOptionalConfig checks that a missing config file is not an error,
// while an invalid one still is.
func TestLoadOptionalConfig(t *testing.T) {
	config, err := loadOptionalConfig("tests/not_found_config.json")
	if err != nil {
		t.Fatalf("expected no error for missing config, got %+v", err)
	}
	if config != (Config{}) {
		t.Fatalf("expected empty config, got %+v", config)
	}

	if _, err := loadOptionalConfig("tests/partial_config.json"); err == nil {
		t.Fatal("expected error while loading partial config")
	}
}

// TestWriteConfig tests the functionality of loading a configuration file,
// updating a specific field, writing the updated configuration back to a file,
// and verifying that the changes were correctly saved.
func TestWriteConfig(t *testing.T) {
	config, err := loadConfig("tests/config.json")
	if err != nil {
		t.Fatalf("error loading config: %+v", err)
	}

	config.AccessToken = "test-token-updated"

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := writeConfig(config, path); err != nil {
		t.Fatalf("error writing updated config: %+v", err)
	}

	updated, err := loadConfig(path)
	if err != nil {
		t.Fatalf("error loading updated config: %+v", err)
	}

	if updated.AccessToken != "test-token-updated" {
		t.Fatalf("expected token %s in updated config, got %s", "test-token-updated", updated.AccessToken)
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Mode().Perm() != 0600 {
		t.Fatalf("expected config file mode 0600, got %v", stat.Mode().Perm())
	}
}

func TestWriteConfigInvalidPath(t *testing.T) {
	if err := writeConfig(Config{}, "config.json"); err == nil {
		t.Fatal("expected error writing config to working directory root")
	}
}

func TestResolveUploadSettings(t *testing.T) {
	config := Config{
		AccessToken: "TestToken",
		AssistantId: "asst_config",
		DataDir:     "config_files",
	}

	tests := []struct {
		name     string
		settings UploadSettings
		config   Config
		want     UploadSettings
	}{
		{
			name:     "config fills gaps",
			settings: UploadSettings{FileName: "a.pdf"},
			config:   config,
			want: UploadSettings{
				AssistantId:  "asst_config",
				DataDir:      "config_files",
				FileName:     "a.pdf",
				PollInterval: DefaultPollInterval,
			},
		},
		{
			name: "flags win over config",
			settings: UploadSettings{
				AssistantId:  "asst_flag",
				DataDir:      "flag_files",
				FileName:     "a.pdf",
				PollInterval: time.Second,
			},
			config: config,
			want: UploadSettings{
				AssistantId:  "asst_flag",
				DataDir:      "flag_files",
				FileName:     "a.pdf",
				PollInterval: time.Second,
			},
		},
		{
			name:     "defaults without config",
			settings: UploadSettings{AssistantId: "asst_flag", FileName: "a.pdf"},
			want: UploadSettings{
				AssistantId:  "asst_flag",
				DataDir:      DefaultDataDir,
				FileName:     "a.pdf",
				PollInterval: DefaultPollInterval,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := resolveUploadSettings(test.settings, test.config)
			if got != test.want {
				t.Errorf("got: %+v, want: %+v", got, test.want)
			}
		})
	}
}

func TestResolveCredentials(t *testing.T) {
	credentials, err := resolveCredentials("", "http://localhost/v1", Config{AccessToken: "TestToken"})
	if err != nil {
		t.Fatal(err)
	}
	if credentials.Secret != "TestToken" || credentials.BaseURL != "http://localhost/v1" {
		t.Fatalf("unexpected credentials %+v", credentials)
	}

	credentials, err = resolveCredentials("sk-flag", "", Config{AccessToken: "TestToken"})
	if err != nil {
		t.Fatal(err)
	}
	if credentials.Secret != "sk-flag" {
		t.Fatalf("expected flag secret to win, got %s", credentials.Secret)
	}

	if _, err := resolveCredentials("", "", Config{}); err == nil {
		t.Fatal("expected error without any API key")
	}
}

func TestValidateSettings(t *testing.T) {
	valid := UploadSettings{
		AssistantId:  "asst_1",
		DataDir:      DefaultDataDir,
		FileName:     "a.pdf",
		PollInterval: time.Second,
	}
	if err := validateSettings(valid); err != nil {
		t.Fatalf("expected valid settings, got %+v", err)
	}

	missingFile := valid
	missingFile.FileName = ""
	if err := validateSettings(missingFile); err == nil {
		t.Fatal("expected error for missing file name")
	}

	noInterval := valid
	noInterval.PollInterval = 0
	if err := validateSettings(noInterval); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
}
