package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Deuspheara/doc-processor/internal/config"
	internal_http "github.com/Deuspheara/doc-processor/internal/http"
	"github.com/Deuspheara/doc-processor/internal/log"
	internal_storage "github.com/Deuspheara/doc-processor/internal/storage"
	"github.com/Deuspheara/doc-processor/pkg/engine"
	"github.com/Deuspheara/doc-processor/pkg/extract"
	"github.com/Deuspheara/doc-processor/pkg/models"
	"github.com/Deuspheara/doc-processor/pkg/ocr"
	"github.com/Deuspheara/doc-processor/pkg/service"
	"github.com/Deuspheara/doc-processor/pkg/storage"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the doc-processor HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			store := initStore(cmd)
			defer store.Close()
			svc := newService(cfg, store)
			if err := internal_http.StartServer(cfg.Port, svc); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}

	createCmd := &cobra.Command{
		Use:   "create [name] [definition-file]",
		Short: "Create a workflow from a definition file",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			store := initStore(cmd)
			defer store.Close()
			svc := newService(config.Load(), store)

			def, err := readDefinition(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			id, err := svc.CreateWorkflow(args[0], "", def)
			if err != nil {
				log.GetLogger().Errorf("Failed to create workflow: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to create workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Created workflow '%s' with ID %s\n", args[0], id)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		Run: func(cmd *cobra.Command, args []string) {
			store := initStore(cmd)
			defer store.Close()
			svc := newService(config.Load(), store)

			workflows, err := svc.ListWorkflows()
			if err != nil {
				log.GetLogger().Errorf("Failed to list workflows: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list workflows: %v\n", err)
				os.Exit(1)
			}
			if len(workflows) == 0 {
				fmt.Fprintf(os.Stdout, "No workflows found.\n")
				return
			}
			fmt.Fprintf(os.Stdout, "Workflows:\n")
			for _, wf := range workflows {
				fmt.Fprintf(os.Stdout, "- ID: %s, Name: %s, Nodes: %d, Created: %s\n",
					wf.ID, wf.Name, len(wf.Definition.Nodes), wf.CreatedAt.Format(time.RFC3339))
			}
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [definition-file]",
		Short: "Validate a workflow definition without executing it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			def, err := readDefinition(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			svc := service.NewWorkflowService(storage.NewMockStore(), nil, log.GetLogger())
			report := svc.ValidateDefinition(def)

			fmt.Fprintf(os.Stdout, "Nodes: %d, Edges: %d\n", report.NodeCount, report.EdgeCount)
			for _, e := range report.Errors {
				fmt.Fprintf(os.Stdout, "error: %s\n", e)
			}
			for _, warning := range report.Warnings {
				fmt.Fprintf(os.Stdout, "warning: %s\n", warning)
			}
			if !report.IsValid {
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Definition is valid.\n")
		},
	}

	rootCmd.AddCommand(serveCmd, createCmd, listCmd, validateCmd)
}

func newService(cfg config.Config, store storage.Store) *service.WorkflowService {
	var textExtractor engine.TextExtractor
	if cfg.MistralAPIKey != "" {
		client, err := ocr.NewClient(cfg.MistralAPIKey, cfg.MistralOCRURL, cfg.OCRModel, cfg.OCRTimeout)
		if err != nil {
			log.GetLogger().Errorf("Failed to configure OCR client: %v", err)
			os.Exit(1)
		}
		textExtractor = client
	}

	var fieldExtractor engine.FieldExtractor
	if cfg.ExtractAPIKey != "" {
		client, err := extract.NewClient(cfg.ExtractAPIKey, cfg.ExtractAPIURL, cfg.ExtractTimeout)
		if err != nil {
			log.GetLogger().Errorf("Failed to configure extraction client: %v", err)
			os.Exit(1)
		}
		fieldExtractor = client
	}

	eng := engine.NewEngine(textExtractor, fieldExtractor, log.GetLogger())
	return service.NewWorkflowService(store, eng, log.GetLogger())
}

func readDefinition(path string) (models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("read definition file: %w", err)
	}
	var def models.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("parse definition file: %w", err)
	}
	return def, nil
}

func initStore(cmd *cobra.Command) *internal_storage.PostgresStore {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	if dbConnStr == "" {
		dbConnStr = config.Load().DBConnStr
	}
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
