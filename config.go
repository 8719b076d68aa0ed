package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadConfig loads the configuration from the specified file path.
// It returns a Config struct and an error if any issues are encountered.
//
// Parameters:
//   - path: The file path to the configuration file.
//
// Returns:
//   - Config: The loaded configuration struct.
//   - error: An error if the configuration file is not found, is a directory,
//     cannot be read, is invalid JSON, or fails validation.
//
// Possible errors:
//   - ConfigFileNotFoundError: If the configuration file does not exist.
//   - InvalidConfigFileError: If the path is a directory, the file cannot be read,
//     the JSON is invalid, or the configuration fails validation.
func loadConfig(path string) (Config, error) {
	var config Config

	stat, err := os.Stat(path)
	if err != nil {
		log.Debug(fmt.Sprintf("cannot find config file at path %s: %+v", path, err))
		return config, ConfigFileNotFoundError{
			Path: path,
		}
	} else if stat.IsDir() {
		log.Debug(fmt.Sprintf("cannot load config %s: path is directory, expected file", path))
		return config, InvalidConfigFileError{
			Path: path,
		}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		log.Debug(fmt.Sprintf("error reading config file: %+v", err))
		return config, InvalidConfigFileError{
			Path: path,
		}
	}

	if err := json.Unmarshal(contents, &config); err != nil {
		log.Debug(fmt.Sprintf("error decoding config file: %+v", err))
		return config, InvalidConfigFileError{
			Path: path,
		}
	}

	// validate contents of config file using validator package
	if err := validateSettings(config); err != nil {
		return config, InvalidConfigFileError{
			Path: path,
		}
	}

	if config.DataDir == "" {
		config.DataDir = DefaultDataDir
	}
	return config, nil
}

// loadOptionalConfig behaves like loadConfig, except that a missing file is
// not an error: the zero Config is returned instead.
func loadOptionalConfig(path string) (Config, error) {
	config, err := loadConfig(path)
	if err != nil {
		var notFound ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Debug(fmt.Sprintf("no config file at %s, using flags and environment only", path))
			return Config{}, nil
		}
		return config, err
	}
	return config, nil
}

// writeConfig writes the given configuration to a specified file path in JSON format.
// It ensures that the directory path exists, creating any necessary directories.
// If the directory path is invalid, it returns an error.
//
// Parameters:
//   - config: The configuration struct to be written to the file.
//   - path: The file path where the configuration should be written.
//
// Returns:
//   - error: An error if the directory path is invalid, if there is an issue creating directories,
//     if there is an error converting the struct to JSON, or if there is an error writing the file.
func writeConfig(config Config, path string) error {
	// Ensure the directory path exists
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return errors.New("invalid file path or directory")
	}
	// create any directories that need to be created
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	// the file holds an API key, keep it private to the user
	return os.WriteFile(path, data, 0600)
}

// resolveUploadSettings fills the gaps in settings from the config file.
// Values already set (from flags or the environment) always win.
func resolveUploadSettings(settings UploadSettings, config Config) UploadSettings {
	if settings.AssistantId == "" {
		settings.AssistantId = config.AssistantId
	}
	if settings.DataDir == "" {
		settings.DataDir = config.DataDir
	}
	if settings.DataDir == "" {
		settings.DataDir = DefaultDataDir
	}
	if settings.PollInterval == 0 {
		settings.PollInterval = DefaultPollInterval
	}
	return settings
}

// resolveCredentials picks the API key from the flag/environment value,
// falling back to the config file.
func resolveCredentials(secret, baseURL string, config Config) (ChatGPTCredentials, error) {
	if secret == "" {
		secret = config.AccessToken
	}
	if secret == "" {
		return ChatGPTCredentials{}, errors.New("no API key found, set OPENAI_API_KEY or run configure")
	}
	return ChatGPTCredentials{
		Secret:  secret,
		BaseURL: baseURL,
	}, nil
}

// validateSettings validates any of the settings structs against their
// struct tags, logging each failing field at debug level.
func validateSettings(settings any) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			log.Debug(fmt.Sprintf("validation error: %+v", fieldErr))
		}
	}
	return err
}
