package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/bootstrap"
	"github.com/AUW160150/Sigmatch/pkg/common/config"
	"github.com/AUW160150/Sigmatch/pkg/common/kafka"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/pipeline"
	"github.com/spf13/cobra"
)

type cli struct {
	dataDir string
}

func (c *cli) stores() *bootstrap.Stores {
	cfg := config.Load()
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	return bootstrap.Open(cfg)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "sigmatchctl",
		Short:        "Manage Sigmatch configuration, cohorts and prompts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "data directory (default $SIGMATCH_DATA_DIR)")

	root.AddCommand(
		c.initCmd(),
		c.configCmd(),
		c.cohortCmd(),
		c.promptsCmd(),
		c.pipelineCmd(),
		c.snapshotCmd(),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data layout, repair config and prompts, seed demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.stores().Initializer().Run()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the active data config",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the active config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.stores().Config.Active()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}

	set := &cobra.Command{
		Use:   "set key=value...",
		Short: "Merge fields into the active config and save a new version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseAssignments(args)
			if err != nil {
				return err
			}
			saved, err := c.stores().Config.Save(update)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}

	repair := &cobra.Command{
		Use:   "repair",
		Short: "Re-derive paths when they disagree with the cohort name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repaired, err := c.stores().Config.Repair()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repaired: %v\n", repaired)
			return nil
		},
	}

	versions := &cobra.Command{
		Use:   "versions",
		Short: "List saved config versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.stores().Config.Versions()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.AddCommand(show, set, repair, versions)
	return cmd
}

// parseAssignments turns key=value arguments into a config update. An empty
// value is kept, so "cohortName=" asks for the cohort-name fallback.
func parseAssignments(args []string) (configstore.Update, error) {
	update := configstore.Update{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		v := value
		update[key] = &v
	}
	return update, nil
}

func (c *cli) cohortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "List corpora and assemble cohorts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List patient corpora",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cohorts, err := c.stores().Corpus.List()
			if err != nil {
				return err
			}
			for _, summary := range cohorts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", summary.Filename, summary.PatientCount)
			}
			return nil
		},
	}

	var (
		source      string
		maxPatients int
		criteria    []string
		apply       bool
	)
	assemble := &cobra.Command{
		Use:   "assemble",
		Short: "Filter a corpus with keyword criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores := c.stores()
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			result, err := cohort.NewService(stores.Corpus).Assemble(ctx, models.CohortAssembleRequest{
				Criteria:     criteria,
				MaxPatients:  &maxPatients,
				CohortSource: source,
			})
			if err != nil {
				return err
			}
			if apply {
				ids := strings.Join(result.PatientIDsList, ",")
				if _, err := stores.Config.Save(configstore.Update{"patient_ids_list": &ids}); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	assemble.Flags().StringVar(&source, "source", cohort.DefaultSource, "corpus file name")
	assemble.Flags().IntVar(&maxPatients, "max", cohort.DefaultMaxPatients, "number of records to search")
	assemble.Flags().StringArrayVar(&criteria, "criterion", nil, "criterion text (repeatable)")
	assemble.Flags().BoolVar(&apply, "apply", false, "write matched ids to patient_ids_list")

	cmd.AddCommand(list, assemble)
	return cmd
}

func (c *cli) promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and version prompt settings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List agents and whether they are skipped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := c.stores().Prompts.All()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(settings))
			for name := range settings {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tskip=%v\n", name, settings[name].Skip)
			}
			return nil
		},
	}

	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a timestamped copy of the prompt settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.stores().Prompts.SaveVersioned()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.AddCommand(list, snapshot)
	return cmd
}

func (c *cli) pipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Render orchestrator commands",
	}

	req := pipeline.DefaultRunRequest()
	command := &cobra.Command{
		Use:   "command",
		Short: "Print the orchestrator command for the active config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			fmt.Fprintln(cmd.OutOrStdout(), req.Command(cfg.PipelineInterpreter, cfg.PipelineScript))
			return nil
		},
	}
	command.Flags().StringVar(&req.ConfigPath, "config", req.ConfigPath, "data config path")
	command.Flags().BoolVar(&req.RunOCR, "run-ocr", req.RunOCR, "run OCR")
	command.Flags().BoolVar(&req.DoLLMSummarization, "llm-summarization", req.DoLLMSummarization, "run LLM summarization")
	command.Flags().BoolVar(&req.DoPatientMatching, "patient-matching", req.DoPatientMatching, "run patient matching")
	command.Flags().BoolVar(&req.DoEvaluation, "evaluation", req.DoEvaluation, "run evaluation")

	var group string
	events := &cobra.Command{
		Use:   "events",
		Short: "Follow staged-run events on the pipeline topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.PipelineTopic == "" {
				return fmt.Errorf("PIPELINE_TOPIC is not set")
			}
			consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.PipelineTopic, group)
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := consumer.Consume(ctx, func(_ context.Context, event models.Event) error {
				return printJSON(cmd.OutOrStdout(), event)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	events.Flags().StringVar(&group, "group", "sigmatchctl", "consumer group id")

	cmd.AddCommand(command, events)
	return cmd
}

func (c *cli) snapshotCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy every config file into snapshots/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, saved, err := c.stores().Files.Snapshot(name, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files)\n", dir, len(saved))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot directory name")
	return cmd
}
