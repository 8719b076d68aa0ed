package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// exit codes of the add-file command, one per failure category
const (
	ExitCodeSettings      = 1
	ExitCodeRetrieval     = 2
	ExitCodeNoFileSearch  = 3
	ExitCodeNoVectorStore = 4
	ExitCodeFileNotFound  = 5
	ExitCodeUpload        = 6
)

const (
	DefaultStoreName     = "vsupload_documents"
	DefaultAssistantName = "vsupload assistant"
	DefaultModel         = "gpt-4o"
	DefaultInstructions  = "You are a helpful assistant. Answer using the attached documents."
)

func newSpinner(prefix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Prefix = prefix
	return s
}

// newClient builds the API client from the global flags, falling back to the
// config file for the API key.
func newClient(cmd *cli.Command, config Config) (*ChatGPTAssistantClient, error) {
	credentials, err := resolveCredentials(cmd.String("api-key"), cmd.String("base-url"), config)
	if err != nil {
		return nil, err
	}
	return NewChatGPTAssistantClient(credentials), nil
}

// AddFileCLICommand uploads a single file from the data directory into the
// vector store attached to an assistant, and waits until it is indexed.
func AddFileCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	config, err := loadOptionalConfig(cmd.String("config-path"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), ExitCodeSettings)
	}

	fileName := cmd.Args().First()
	if fileName == "" {
		fileName = cmd.String("file")
	}

	settings := resolveUploadSettings(UploadSettings{
		AssistantId:   cmd.String("assistant-id"),
		DataDir:       cmd.String("dir"),
		FileName:      fileName,
		VectorStoreId: cmd.String("vector-store-id"),
		Strict:        cmd.Bool("strict"),
		PollInterval:  cmd.Duration("poll-interval"),
	}, config)

	if err := validateSettings(settings); err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), ExitCodeSettings)
	}

	client, err := newClient(cmd, config)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), ExitCodeSettings)
	}
	client.PollInterval = settings.PollInterval

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Printf("--- ADDING FILE TO ASSISTANT: %s ---\n", settings.AssistantId)

	// resolve the vector store first so its warnings are not drawn over by the spinner
	result, err := FindVectorStore(ctx, client, settings)
	if err != nil {
		return reportUpload(os.Stdout, settings, result, err)
	}

	spin := newSpinner(fmt.Sprintf("Uploading '%s' ", settings.FileName))
	spin.Start()
	result, err = UploadToVectorStore(ctx, client, settings, result)
	spin.Stop()

	return reportUpload(os.Stdout, settings, result, err)
}

// reportUpload converts the outcome of AddFile into console output and an
// exit code.
func reportUpload(w io.Writer, settings UploadSettings, result UploadResult, err error) error {
	if result.VectorStoreId != "" {
		fmt.Fprintf(w, "Found Vector Store ID: %s\n", result.VectorStoreId)
	}

	if err == nil {
		fmt.Fprintln(w, "Success! File uploaded and indexed.")
		fmt.Fprintf(w, "File Counts: %+v\n", result.FileCounts())
		return nil
	}

	var gptError ChatGPTError
	if errors.As(err, &gptError) {
		log.Debug(fmt.Sprintf("error response: %+v", gptError))
	}

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		return cli.Exit(fmt.Sprintf("Upload failed: %v", err), ExitCodeUpload)
	}

	switch uploadErr.Kind {
	case UploadErrorRetrieval:
		return cli.Exit(fmt.Sprintf("Error retrieving assistant: %v", uploadErr.Err), ExitCodeRetrieval)
	case UploadErrorNoFileSearch:
		return cli.Exit("Error: Could not find file_search resources on this assistant.", ExitCodeNoFileSearch)
	case UploadErrorNoVectorStore:
		if uploadErr.Err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v on this assistant.", uploadErr.Err), ExitCodeNoVectorStore)
		}
		return cli.Exit("Error: This assistant has no file storage attached.", ExitCodeNoVectorStore)
	case UploadErrorAmbiguousVectorStore:
		return cli.Exit(fmt.Sprintf("Error: This assistant has more than one vector store attached, %v with --vector-store-id.", uploadErr.Err), ExitCodeNoVectorStore)
	case UploadErrorFileNotFound:
		return cli.Exit(fmt.Sprintf("Error: Could not find '%s' inside '%s'.", settings.FileName, settings.DataDir), ExitCodeFileNotFound)
	default:
		if result.Batch.ID != "" {
			fmt.Fprintf(w, "File Counts: %+v\n", result.FileCounts())
		}
		return cli.Exit(fmt.Sprintf("Upload failed: %v", uploadErr.Err), ExitCodeUpload)
	}
}

// SetupCLICommand creates a vector store from the data directory and an
// assistant bound to it, then prints the assistant ID. With --save the new
// assistant is written to the config file.
func SetupCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	cfgPath := cmd.String("config-path")
	config, err := loadOptionalConfig(cfgPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}

	settings := SetupSettings{
		DataDir:       cmd.String("dir"),
		StoreName:     cmd.String("name"),
		AssistantName: cmd.String("assistant-name"),
		Model:         cmd.String("model"),
		Instructions:  cmd.String("instructions"),
		PollInterval:  cmd.Duration("poll-interval"),
	}
	if settings.DataDir == "" {
		settings.DataDir = config.DataDir
	}
	if settings.DataDir == "" {
		settings.DataDir = DefaultDataDir
	}
	if err := validateSettings(settings); err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}

	if !isValidDir(settings.DataDir) {
		return cli.Exit(fmt.Sprintf("path %s either does not exist or is not a valid directory", settings.DataDir), 1)
	}

	client, err := newClient(cmd, config)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}
	client.PollInterval = settings.PollInterval

	fmt.Println("--- STARTING SETUP ---")
	files, err := getFilesToUpload(settings.DataDir)
	if err != nil {
		log.Debug(fmt.Sprintf("%+v", err))
		return cli.Exit(fmt.Sprintf("error reading data directory %s", settings.DataDir), 1)
	}

	spin := newSpinner(fmt.Sprintf("Uploading %d files from '%s' ", len(files), settings.DataDir))
	spin.Start()
	result, err := SetupAssistant(ctx, client, settings, files)
	spin.Stop()

	if err != nil {
		log.Debug(fmt.Sprintf("setup failed: %+v", err))
		return cli.Exit(fmt.Sprintf("SETUP FAILED: %v", err), 1)
	}

	fmt.Printf("Vector Store Created: %s\n", result.VectorStoreId)
	fmt.Printf("Uploaded %d files, File Counts: %+v\n", len(result.FileIds), result.Batch.FileCounts)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("ASSISTANT_ID = \"%s\"\n", result.AssistantId)
	fmt.Println("--------------------------------------------------")

	if cmd.Bool("save") {
		config.AccessToken = client.Credentials.Secret
		config.AssistantId = result.AssistantId
		config.DataDir = settings.DataDir
		if err := writeConfig(config, cfgPath); err != nil {
			log.Debug(fmt.Sprintf("%+v", err))
			return cli.Exit(fmt.Sprintf("error writing config file to %s", cfgPath), 1)
		}
		fmt.Printf("Saved assistant to %s\n", cfgPath)
	}
	return nil
}

// AskCLICommand asks a question of the configured assistant and prints the
// answer followed by the files it cites. The thread ID is printed so the
// conversation can be continued with --thread-id.
func AskCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	config, err := loadOptionalConfig(cmd.String("config-path"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}

	settings := AskSettings{
		AssistantId:  cmd.String("assistant-id"),
		Question:     strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")),
		ThreadId:     cmd.String("thread-id"),
		Instructions: cmd.String("instructions"),
		PollInterval: cmd.Duration("poll-interval"),
	}
	if settings.AssistantId == "" {
		settings.AssistantId = config.AssistantId
	}
	if err := validateSettings(settings); err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}

	client, err := newClient(cmd, config)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error loading settings: %v", err), 1)
	}
	client.PollInterval = settings.PollInterval

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	spin := newSpinner("Waiting for the assistant ")
	spin.Start()
	result, err := AskAssistant(ctx, client, settings)
	spin.Stop()

	if err != nil {
		var gptError ChatGPTError
		if errors.As(err, &gptError) {
			log.Debug(fmt.Sprintf("error response: %+v", gptError))
		}
		return cli.Exit(fmt.Sprintf("ASK FAILED: %v", err), 1)
	}

	reportAnswer(os.Stdout, result)
	return nil
}

// reportAnswer prints the answer, its sources and the thread to continue.
func reportAnswer(w io.Writer, result AskResult) {
	fmt.Fprintln(w, result.Answer)
	if len(result.Citations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, citation := range result.Citations {
			fmt.Fprintf(w, "  [%d] %s\n", citation.Index, citation.FileName)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Thread ID: %s\n", result.ThreadId)
}

// ConfigureCLICommand prompts for the API key, assistant ID and data directory,
// validates each against the API or the filesystem, and writes the config file.
func ConfigureCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))
	reader := bufio.NewReader(os.Stdin)

	var client *ChatGPTAssistantClient
	// prompt user for API access token
	token, err := getCliInput(reader, "Enter OpenAI API key: ", func(value string) (string, error) {
		client = NewChatGPTAssistantClient(ChatGPTCredentials{
			Secret:  value,
			BaseURL: cmd.String("base-url"),
		})

		// verify provided credentials using client
		if err := client.VerifyCredentials(ctx); err != nil {
			log.Debug(fmt.Sprintf("error validating api key: %+v", err))
			return "", err
		}
		return value, nil
	})

	if err != nil {
		return cli.Exit("error validating OpenAI API key", 1)
	}

	// get assistant ID from CLI and check that it has a vector store attached
	assistantId, err := getCliInput(reader, "Enter assistant ID: ", func(value string) (string, error) {
		assistant, err := client.GetAssistant(ctx, value)
		if err != nil {
			log.Debug(fmt.Sprintf("error validating assistant: %+v", err))
			return "", err
		}

		if assistant.ToolResources == nil || assistant.ToolResources.FileSearch == nil ||
			len(assistant.ToolResources.FileSearch.VectorStoreIDs) == 0 {
			log.Debug("vector store ids not found in assistant tool resources")
			return "", fmt.Errorf("vector store ids not found in assistant tool resources")
		}

		return value, nil
	})

	if err != nil {
		return cli.Exit("error validating assistant", 1)
	}

	prompt := fmt.Sprintf("Enter data directory (default %s): ", DefaultDataDir)
	dataDir, err := getCliInput(reader, prompt, func(value string) (string, error) {
		if len(value) == 0 {
			value = DefaultDataDir
		}
		if !isValidDir(value) {
			return "", fmt.Errorf("path %s either does not exist or is not a valid directory", value)
		}
		return value, nil
	})

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defaultConfigPath := cmd.String("config-path")
	prompt = fmt.Sprintf("Enter config path (default %s): ", defaultConfigPath)
	// if no path is provided, use default
	path, _ := getCliInput(reader, prompt, func(value string) (string, error) {
		return strings.TrimSpace(value), nil
	})

	if len(path) == 0 {
		path = defaultConfigPath
	}

	config := Config{
		AccessToken: token,
		AssistantId: assistantId,
		DataDir:     dataDir,
	}

	if err := writeConfig(config, path); err != nil {
		log.Debug(fmt.Sprintf("%+v", err))
		return cli.Exit(fmt.Sprintf("error writing config file to %s", path), 1)
	}

	return nil
}

// TestCLICommand loads the configuration and checks it against the API: the
// key must be valid and every vector store of the assistant must be readable.
// The file counts of each vector store are printed.
func TestCLICommand(ctx context.Context, cmd *cli.Command) error {
	// configure logging for application
	configureLogging(cmd.String("log-level"))

	cfgPath := cmd.String("config-path")
	log.Debug(fmt.Sprintf("loading new configuration from path %s", cfgPath))

	config, err := loadConfig(cfgPath)
	if err != nil {
		return cli.Exit("error loading config file", 1)
	}

	client, err := newClient(cmd, config)
	if err != nil {
		return cli.Exit("error loading config file", 1)
	}

	if err := checkConfig(ctx, os.Stdout, client, config); err != nil {
		log.Debug(fmt.Sprintf("%+v", err))
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func checkConfig(ctx context.Context, w io.Writer, service VectorStoreService, config Config) error {
	if err := service.VerifyCredentials(ctx); err != nil {
		log.Debug(fmt.Sprintf("error verifying credentials: %+v", err))
		return errors.New("error validating OpenAI credentials")
	}

	assistant, err := service.GetAssistant(ctx, config.AssistantId)
	if err != nil {
		log.Debug(fmt.Sprintf("error fetching assistant %s: %+v", config.AssistantId, err))
		return errors.New("error validating assistant")
	}

	if assistant.ToolResources == nil || assistant.ToolResources.FileSearch == nil {
		return errors.New("assistant has no file_search resources")
	}
	if len(assistant.ToolResources.FileSearch.VectorStoreIDs) == 0 {
		return errors.New("assistant has no file storage attached")
	}

	for _, id := range assistant.ToolResources.FileSearch.VectorStoreIDs {
		vectorStore, err := service.GetVectorStore(ctx, id)
		if err != nil {
			log.Debug(fmt.Sprintf("error fetching vector store %s: %+v", id, err))
			return fmt.Errorf("error validating vector store %s", id)
		}
		fmt.Fprintf(w, "Vector Store %s (%s) File Counts: %+v\n", vectorStore.ID, vectorStore.Name, vectorStore.FileCounts)
	}

	if !isValidDir(config.DataDir) {
		log.Warn(fmt.Sprintf("data directory %s does not exist", config.DataDir))
	}
	return nil
}
