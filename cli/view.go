package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/golang-module/carbon/v2"
	"github.com/goto/salt/printer"
	"github.com/goto/salt/term"
	"github.com/goto/sieve/core/question"
	"github.com/goto/sieve/core/validator"
	"github.com/goto/sieve/core/view"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
)

var openEnd = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type viewOptions struct {
	file        string
	sort        string
	desc        bool
	toggle      bool
	text        string
	from        string
	to          string
	topic       string
	withAnswer  bool
	clearFilter bool
	remember    bool
	save        bool
	output      string

	changed func(name string) bool
}

func viewCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <command>",
		Short: "Sort and filter records with the remembered view",
		Example: heredoc.Doc(`
			$ sieve view apply -f questions.yaml --sort created_at --desc --save
			$ sieve view apply -f questions.yaml --text capital --from 2024-01-01
			$ sieve view show
			$ sieve view reset
			$ sieve view watch -f questions.yaml
			$ sieve view listen`),
	}

	cmd.AddCommand(
		viewApplyCommand(cfg),
		viewShowCommand(cfg),
		viewResetCommand(cfg),
		viewWatchCommand(cfg),
		viewListenCommand(cfg),
	)
	return cmd
}

func addViewFlags(cmd *cobra.Command, opts *viewOptions) {
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML file with the records to view")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "Sort field, one of title or created_at")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Sort descending (--desc=false sorts ascending)")
	cmd.Flags().BoolVar(&opts.toggle, "toggle", false, "Flip the current sort direction")
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "Keep records whose title or text contains this fragment")
	cmd.Flags().StringVar(&opts.from, "from", "", "Keep records created on or after this date")
	cmd.Flags().StringVar(&opts.to, "to", "", "Keep records created on or before this date")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Keep records of this topic")
	cmd.Flags().BoolVar(&opts.withAnswer, "with-answer", false, "Keep records with at least one correct answer")
	cmd.Flags().BoolVar(&opts.clearFilter, "clear-filter", false, "Drop the remembered filter before applying flags")
	cmd.Flags().BoolVar(&opts.remember, "remember", false, "Remember the sort for the next session")
	cmd.Flags().StringVarP(&opts.output, "out", "o", outputTable, "Output format, one of table or yaml")
}

func viewApplyCommand(cfg *Config) *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Print the records ordered and filtered by the remembered view and flags",
		Example: heredoc.Doc(`
			$ sieve view apply -f questions.yaml
			$ sieve view apply -f questions.yaml --sort title --desc --save
		`),
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			"group": "core",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.changed = cmd.Flags().Changed
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)

			records, err := readRecords(opts.file)
			if err != nil {
				return err
			}

			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.close()

			return runApply(cmd.Context(), s, opts, records, os.Stdout)
		},
	}

	addViewFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the resulting view")
	return cmd
}

func runApply(ctx context.Context, s *session, opts viewOptions, records []*question.Question, out io.Writer) error {
	s.svc.Restore(ctx)

	sortCriteria, filterCriteria := s.svc.Criteria()
	sortCriteria, filterCriteria, err := opts.overlay(sortCriteria, filterCriteria)
	if err != nil {
		return err
	}
	s.svc.SetSort(sortCriteria)
	s.svc.SetFilter(filterCriteria)
	if opts.changed != nil && opts.changed("remember") {
		s.svc.SetRememberLastSort(opts.remember)
	}

	if err := render(out, opts.output, view.View(s.svc, records)); err != nil {
		return err
	}

	if opts.save {
		if err := s.persist(ctx); err != nil {
			return err
		}
	}
	return nil
}

func viewShowCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved view configuration",
		Example: heredoc.Doc(`
			$ sieve view show
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)

			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.close()

			return runShow(cmd.Context(), s, os.Stdout)
		},
	}
}

func runShow(ctx context.Context, s *session, out io.Writer) error {
	return printConfiguration(out, s.store.Load(ctx), s.revision(ctx))
}

func viewResetCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the saved view with the default one",
		Example: heredoc.Doc(`
			$ sieve view reset
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)

			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.close()

			def := view.DefaultConfiguration()
			if err := s.save(cmd.Context(), view.NewConfiguration(nil, def.Sort, def.Filter, def.RememberLastSort)); err != nil {
				return err
			}
			fmt.Println(term.Greenf("view reset to %s", def.Sort.String()))
			return nil
		},
	}
}

func (opts viewOptions) validate() error {
	if opts.file == "" {
		return errNoRecordsFile
	}
	if err := validator.ValidateOneOf(opts.sort, string(view.SortByTitle), string(view.SortByCreatedAt)); err != nil {
		return err
	}
	return validator.ValidateOneOf(opts.output, outputTable, outputYAML)
}

func (opts viewOptions) isSet(name string) bool {
	return opts.changed != nil && opts.changed(name)
}

// overlay applies the flags that were set on top of the given criteria.
func (opts viewOptions) overlay(sortCriteria view.SortCriteria, filterCriteria view.FilterCriteria) (view.SortCriteria, view.FilterCriteria, error) {
	if opts.isSet("sort") {
		field, err := view.ParseSortField(opts.sort)
		if err != nil {
			return sortCriteria, filterCriteria, err
		}
		if sortCriteria, err = view.NewSortCriteria(field, sortCriteria.Direction()); err != nil {
			return sortCriteria, filterCriteria, err
		}
	}
	if opts.isSet("desc") {
		direction := view.Ascending
		if opts.desc {
			direction = view.Descending
		}
		sortCriteria = sortCriteria.WithDirection(direction)
	}
	if opts.toggle {
		sortCriteria = sortCriteria.Toggled()
	}

	if opts.clearFilter {
		filterCriteria = view.NewFilterCriteria()
	}
	var filterOpts []view.FilterOption
	if opts.isSet("text") {
		filterOpts = append(filterOpts, view.WithText(opts.text))
	}
	if opts.from != "" || opts.to != "" {
		r, err := dateRange(opts.from, opts.to)
		if err != nil {
			return sortCriteria, filterCriteria, err
		}
		filterOpts = append(filterOpts, view.WithDateRange(r))
	}
	if opts.topic != "" {
		filterOpts = append(filterOpts, view.WithPredicates(question.ByTopic(strings.ToLower(opts.topic))))
	}
	if opts.withAnswer {
		filterOpts = append(filterOpts, view.WithPredicates(question.HasCorrectAnswer()))
	}
	return sortCriteria, filterCriteria.With(filterOpts...), nil
}

// dateRange parses the --from and --to flags. A missing side leaves the
// window open; a date without a time covers the whole day.
func dateRange(from, to string) (view.DateRange, error) {
	start, end := time.Time{}, openEnd
	if from != "" {
		t, err := parseDate(from, false)
		if err != nil {
			return view.DateRange{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}
	if to != "" {
		t, err := parseDate(to, true)
		if err != nil {
			return view.DateRange{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t
	}
	return view.NewDateRange(start, end)
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	c := carbon.Parse(s, carbon.UTC)
	if c.Error != nil {
		return time.Time{}, c.Error
	}
	if endOfDay && len(s) == len("2006-01-02") {
		c = c.EndOfDay()
	}
	return c.Carbon2Time(), nil
}

func render(out io.Writer, format string, records []*question.Question) error {
	if format == outputYAML {
		return yaml.NewEncoder(out).Encode(records)
	}

	report := [][]string{{"TITLE", "TOPIC", "CREATED", "TEXT"}}
	for _, q := range records {
		report = append(report, []string{
			term.Bluef("%s", q.Title),
			q.Topic,
			q.CreatedAt.UTC().Format(time.RFC3339),
			truncate(q.Text, 60),
		})
	}
	printer.Table(out, report)
	footer := fmt.Sprintf("%d record(s)", len(records))
	if topics := topicsOf(records); len(topics) > 0 {
		footer += " in " + strings.Join(topics, ", ")
	}
	fmt.Fprintln(out, term.Cyanf("%s", footer))
	return nil
}

type shownConfiguration struct {
	Sort             view.SortState   `yaml:"sort"`
	Filter           view.FilterState `yaml:"filter"`
	RememberLastSort bool             `yaml:"remember_last_sort"`
	CreatedAt        time.Time        `yaml:"created_at"`
	Revision         string           `yaml:"revision,omitempty"`
}

func printConfiguration(out io.Writer, cfg view.Configuration, revision string) error {
	return yaml.NewEncoder(out).Encode(shownConfiguration{
		Sort:             cfg.Sort.State(),
		Filter:           cfg.Filter.State(),
		RememberLastSort: cfg.RememberLastSort,
		CreatedAt:        cfg.CreatedAt,
		Revision:         revision,
	})
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
