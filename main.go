package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	// populate the environment from a local .env file, if there is one
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("error loading .env file: ", err)
	}

	cmd := cli.Command{
		Name:  "vsupload",
		Usage: "Upload documents into the vector store of an OpenAI assistant and ask it questions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level for outputs",
			},
			&cli.StringFlag{
				Name:  "config-path",
				Value: getDefaultConfigPath(),
				Usage: "path to configuration file",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "OpenAI API key (overrides the config file)",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "base URL of the OpenAI compatible API",
				Sources: cli.EnvVars("OPENAI_BASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add-file",
				Usage:     "Upload a file into the vector store attached to an assistant",
				ArgsUsage: "<file name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "name of the file inside the data directory (alternative to the argument)",
					},
					&cli.StringFlag{
						Name:    "assistant-id",
						Usage:   "ID of the assistant whose vector store receives the file",
						Sources: cli.EnvVars("VSUPLOAD_ASSISTANT_ID"),
					},
					&cli.StringFlag{
						Name:    "dir",
						Usage:   "directory containing the file (default data_files)",
						Sources: cli.EnvVars("VSUPLOAD_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:  "vector-store-id",
						Usage: "vector store to upload into when the assistant has several",
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "fail instead of using the first vector store when several are attached",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Value: DefaultPollInterval,
						Usage: "interval between file batch status checks",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 10 * time.Minute,
						Usage: "maximum time to wait for the upload to be indexed (0 to wait forever)",
					},
				},
				Action: AddFileCLICommand,
			},
			{
				Name:  "setup",
				Usage: "Create a vector store from the data directory and an assistant that searches it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Usage:   "directory containing the files to upload (default data_files)",
						Sources: cli.EnvVars("VSUPLOAD_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:  "name",
						Value: DefaultStoreName,
						Usage: "name of the new vector store",
					},
					&cli.StringFlag{
						Name:  "assistant-name",
						Value: DefaultAssistantName,
						Usage: "name of the new assistant",
					},
					&cli.StringFlag{
						Name:  "model",
						Value: DefaultModel,
						Usage: "model used by the new assistant",
					},
					&cli.StringFlag{
						Name:  "instructions",
						Value: DefaultInstructions,
						Usage: "instructions of the new assistant",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Value: DefaultPollInterval,
						Usage: "interval between file batch status checks",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "write the new assistant ID to the config file",
					},
				},
				Action: SetupCLICommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask the assistant a question and print the answer with the cited files",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "assistant-id",
						Usage:   "ID of the assistant to ask",
						Sources: cli.EnvVars("VSUPLOAD_ASSISTANT_ID"),
					},
					&cli.StringFlag{
						Name:  "thread-id",
						Usage: "continue the conversation of an earlier answer",
					},
					&cli.StringFlag{
						Name:  "instructions",
						Usage: "additional instructions for this answer only",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Value: DefaultRunPollInterval,
						Usage: "interval between run status checks",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 5 * time.Minute,
						Usage: "maximum time to wait for the answer (0 to wait forever)",
					},
				},
				Action: AskCLICommand,
			},
			{
				Name:   "configure",
				Usage:  "Configure API key, assistant and data directory",
				Action: ConfigureCLICommand,
			},
			{
				Name:   "test",
				Usage:  "Test configured assistant and vector stores",
				Action: TestCLICommand,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
