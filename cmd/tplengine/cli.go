package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-tplengine/internal/config"
	"github.com/goliatone/go-tplengine/internal/prompt"
	"github.com/goliatone/go-tplengine/pkg/compiler"
	"github.com/goliatone/go-tplengine/pkg/engine"
)

type globalFlags struct {
	configPath string
	dir        string
	embedded   bool
	compiler   string
	suffix     string
	verbose    bool
}

type renderFlags struct {
	modelPath string
	sets      []string
	asks      []string
	output    string
}

func newRootCommand(driver prompt.Driver) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "tplengine",
		Short:         "Render templates from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file in yaml or json format.")
	root.PersistentFlags().StringVarP(&flags.dir, "dir", "d", "", "Template directory (overrides the config source).")
	root.PersistentFlags().BoolVar(&flags.embedded, "embedded", false, "Use the bundled starter templates.")
	root.PersistentFlags().StringVar(&flags.compiler, "compiler", "", "Compiler: interp, pongo or handlebars.")
	root.PersistentFlags().StringVar(&flags.suffix, "suffix", "", "Variant suffix, e.g. mobile.")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output to stderr.")

	root.AddCommand(newRenderCommand(flags, driver), newListCommand(flags))
	return root
}

func newRenderCommand(flags *globalFlags, driver prompt.Driver) *cobra.Command {
	rf := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render a template against a model.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			logger, err := newLogger(flags.verbose)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			values, err := rf.model(cmd.Context(), driver)
			if err != nil {
				return err
			}

			e, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}

			rendered, err := e.Render(args[0], values)
			if err != nil {
				return err
			}

			if rf.output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			if err := os.WriteFile(rf.output, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info("template written", zap.String("template", args[0]), zap.String("path", rf.output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&rf.modelPath, "model", "m", "", "JSON or YAML file holding the model.")
	cmd.Flags().StringArrayVar(&rf.sets, "set", nil, "Set a model value, key=value. Repeatable.")
	cmd.Flags().StringArrayVar(&rf.asks, "ask", nil, "Prompt for a model value; suffix with ? for yes/no. Repeatable.")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "Output file (stdout if empty).")
	return cmd
}

func newListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the templates visible to a directory or embedded source.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			reader, err := cfg.Reader()
			if err != nil {
				return err
			}
			lister, ok := reader.(interface{ List() ([]string, error) })
			if !ok {
				return fmt.Errorf("list: source kind %q cannot be listed", cfg.Source.Kind)
			}
			names, err := lister.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// resolve loads the config file, if any, and applies flag overrides.
func (f *globalFlags) resolve() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if f.dir != "" {
		cfg.Source.Kind = config.KindDir
		cfg.Source.Dir = f.dir
	}
	if f.embedded {
		cfg.Source.Kind = config.KindEmbedded
	}
	if f.compiler != "" {
		cfg.Compiler = f.compiler
	}
	if f.suffix != "" {
		cfg.Suffix = f.suffix
	}
	return cfg, cfg.Validate()
}

func (f *renderFlags) model(ctx context.Context, driver prompt.Driver) (map[string]any, error) {
	values := map[string]any{}
	if f.modelPath != "" {
		loaded, err := config.LoadModel(f.modelPath)
		if err != nil {
			return nil, err
		}
		values = loaded
	}
	for _, pair := range f.sets {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: expected key=value", pair)
		}
		values[key] = value
	}
	if len(f.asks) == 0 {
		return values, nil
	}
	if driver == nil {
		return nil, errors.New("--ask: no interactive terminal")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return prompt.Fill(ctx, driver, values, f.asks)
}

func newEngine(cfg config.Config, logger *zap.Logger) (*engine.Engine, error) {
	reader, err := cfg.Reader()
	if err != nil {
		return nil, err
	}
	registry, err := compiler.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	c, err := registry.Get(cfg.Compiler)
	if err != nil {
		return nil, err
	}
	return engine.New(reader, c, cfg.EngineOptions(logger)...)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return zcfg.Build()
}
