package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	"github.com/noah-isme/ssmap-api/internal/service"
	"github.com/noah-isme/ssmap-api/pkg/export"
	"github.com/noah-isme/ssmap-api/pkg/gradingscheme"
	"github.com/noah-isme/ssmap-api/pkg/importer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ssmap-cli",
		Short:         "Offline broadsheet processing for roster files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("scheme", "", "Grading scheme YAML (defaults to the built-in scheme)")
	root.PersistentFlags().String("school", "SSMAP School", "School name printed on outputs")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.AddCommand(validateCmd(), processCmd(), exportCmd())
	return root
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate ROSTER",
		Short: "Check a roster document against the roster schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read roster: %w", err)
			}
			if err := importer.Validate(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process ROSTER",
		Short: "Compute the broadsheet for one series and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := buildBroadsheet(cmd, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sheet)
		},
	}
	cmd.Flags().String("series", "", "Series to process (defaults to the scheme's first series)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export ROSTER",
		Short: "Render the broadsheet of one series as csv, pdf or xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viperForCmd(cmd)
			format, err := service.ParseExportFormat(v.GetString("format"))
			if err != nil {
				return err
			}
			sheet, err := buildBroadsheet(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := service.RenderBroadsheet(sheet, format, export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), v.GetString("output"), data)
		},
	}
	f := cmd.Flags()
	f.String("series", "", "Series to export (defaults to the scheme's first series)")
	f.StringP("format", "f", "csv", "Output format (csv, pdf, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func buildBroadsheet(cmd *cobra.Command, rosterPath string) (*service.Broadsheet, error) {
	v := viperForCmd(cmd)
	logr := newLogger(v.GetString("log-level"))
	defer logr.Sync() //nolint:errcheck

	var scheme *gradingscheme.Scheme
	if path := v.GetString("scheme"); path != "" {
		var err error
		if scheme, err = gradingscheme.Load(path); err != nil {
			return nil, err
		}
	}
	settings := scheme.Template()(v.GetString("school"))
	cfg := engine.FromSettings(settings)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("grading scheme: %w", err)
	}

	roster, err := importer.Load(rosterPath)
	if err != nil {
		return nil, err
	}
	series := v.GetString("series")
	if series == "" {
		series = settings.ActiveSeries
	}

	result := engine.Process(roster.Records(1), series, models.Facilitators{}, cfg)
	for _, note := range result.Adjustments {
		logr.Info("configuration adjusted", zap.String("note", note))
	}
	logr.Debug("broadsheet computed", zap.String("series", series), zap.Int("students", len(result.Students)))

	return &service.Broadsheet{
		School:   service.SchoolHeader{SchoolName: settings.SchoolName, ExamTitle: settings.ExamTitle, AcademicYear: settings.AcademicYear, Term: settings.Term},
		Subjects: append([]string(nil), settings.Subjects...),
		Result:   result,
	}, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// viperForCmd binds a command's flags and SSMAP_ environment variables.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())
	v.SetEnvPrefix("SSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logr, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logr
}
