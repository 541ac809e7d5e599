package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/findwinds/QuantCode/backtester/config"
	"github.com/findwinds/QuantCode/backtester/data/kline/csv"
	"github.com/findwinds/QuantCode/backtester/data/kline/database"
	"github.com/findwinds/QuantCode/backtester/engine"
	"github.com/findwinds/QuantCode/backtester/report"
	"github.com/findwinds/QuantCode/backtester/strategies"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
)

var errNoConfig = errors.New("at least one --config is required")

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "executes one or more run configs, concurrently when several are given",
	ArgsUsage: "<config...>",
	Action:    runConfigs,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a run config, can be repeated",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "directory for report files, overrides the config's output settings",
		},
		&cli.StringSliceFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "report formats to write: json, csv, html, text",
		},
		&cli.StringFlag{
			Name:  "lang",
			Value: "en",
			Usage: "language used to format numbers in the printed summary",
		},
	},
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "checks run configs and their contracts without replaying any data",
	ArgsUsage: "<config...>",
	Action:    validateConfigs,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a run config, can be repeated",
		},
	},
}

var strategiesCommand = &cli.Command{
	Name:   "strategies",
	Usage:  "lists the available strategies",
	Action: listStrategies,
}

var databaseFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "driver",
		Value: database.DBSQLite3,
		Usage: "database driver: sqlite3 or postgres",
	},
	&cli.StringFlag{
		Name:     "dsn",
		Usage:    "sqlite3 file path or postgres connection string",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "migrationdir",
		Usage: "override the embedded migrations",
	},
}

var migrateCommand = &cli.Command{
	Name:      "migrate",
	Usage:     "runs candle store migrations",
	ArgsUsage: "<status|up|up-by-one|down|redo|version>",
	Action:    migrate,
	Flags:     databaseFlags,
}

var importCommand = &cli.Command{
	Name:   "import",
	Usage:  "loads CSV bars into the candle store",
	Action: importCSV,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "dir",
			Usage:    "directory holding one <SYMBOL>.csv file per symbol",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "symbol to import, can be repeated",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "location",
			Usage: "IANA zone for CSV timestamps without an offset",
		},
	}, databaseFlags...),
}

func configPaths(c *cli.Context) ([]string, error) {
	paths := append(c.StringSlice("config"), c.Args().Slice()...)
	if len(paths) == 0 {
		return nil, errNoConfig
	}
	return paths, nil
}

func runConfigs(c *cli.Context) error {
	paths, err := configPaths(c)
	if err != nil {
		return err
	}
	tag, err := language.Parse(c.String("lang"))
	if err != nil {
		return err
	}
	cfgs := make([]*config.Config, len(paths))
	for i := range paths {
		if cfgs[i], err = config.ReadConfigFromFile(paths[i]); err != nil {
			return err
		}
	}
	if len(cfgs) == 1 && cfgs[0].LogSettings != nil {
		if err = log.SetupGlobalLogger(cfgs[0].LogSettings); err != nil {
			return err
		}
	}

	rm := engine.SetupRunManager()
	runs := make([]*engine.BackTest, 0, len(cfgs))
	defer func() {
		for i := range runs {
			if closeErr := runs[i].Close(); closeErr != nil {
				log.Errorln(log.BackTester, closeErr)
			}
		}
	}()
	for i := range cfgs {
		bt, err := engine.NewFromConfig(cfgs[i])
		if err != nil {
			return fmt.Errorf("%s: %w", paths[i], err)
		}
		runs = append(runs, bt)
		if err = rm.AddRun(bt); err != nil {
			return err
		}
	}

	_, runErr := rm.StartAllRuns(c.Context)
	for i := range runs {
		rep, err := rm.GetReport(runs[i].MetaData.ID)
		if err != nil {
			runErr = gctcommon.AppendError(runErr, fmt.Errorf("%s: %w", paths[i], err))
			continue
		}
		rep.Statistics.PrintResults()
		fmt.Println(report.Summary(rep, tag))
		dir, formats := outputSettings(c, cfgs[i])
		if dir == "" || len(formats) == 0 {
			continue
		}
		if _, err = report.Write(rep, dir, formats); err != nil {
			runErr = gctcommon.AppendError(runErr, err)
		}
	}
	return runErr
}

func outputSettings(c *cli.Context, cfg *config.Config) (dir string, formats []string) {
	dir, formats = cfg.OutputSettings.Directory, cfg.OutputSettings.Formats
	if c.IsSet("output") {
		dir = c.String("output")
	}
	if c.IsSet("format") {
		formats = nil
		for _, f := range c.StringSlice("format") {
			formats = append(formats, strings.Split(f, ",")...)
		}
	}
	if dir != "" && len(formats) == 0 {
		formats = []string{config.FormatJSON}
	}
	return dir, formats
}

func validateConfigs(c *cli.Context) error {
	paths, err := configPaths(c)
	if err != nil {
		return err
	}
	var errs error
	for i := range paths {
		cfg, err := config.ReadConfigFromFile(paths[i])
		if err == nil {
			err = cfg.Validate()
		}
		if err == nil {
			err = validateRun(cfg)
		}
		if err != nil {
			errs = gctcommon.AppendError(errs, fmt.Errorf("%s: %w", paths[i], err))
			fmt.Printf("%s: invalid\n", paths[i])
			continue
		}
		fmt.Printf("%s: ok\n", paths[i])
	}
	return errs
}

// validateRun checks every symbol resolves to a contract
func validateRun(cfg *config.Config) error {
	ec, err := engine.ConfigFromRunConfig(cfg)
	if err != nil {
		return err
	}
	return ec.Validate()
}

func listStrategies(_ *cli.Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, s := range strategies.GetStrategies() {
		fmt.Fprintf(w, "%s\t%s\n", s.Name(), s.Description())
	}
	return w.Flush()
}

func openDatabase(c *cli.Context) (*database.Provider, error) {
	return database.Connect(database.Config{
		Driver:       c.String("driver"),
		DSN:          c.String("dsn"),
		MigrationDir: c.String("migrationdir"),
	})
}

func migrate(c *cli.Context) error {
	command := c.Args().First()
	if command == "" {
		command = "status"
	}
	p, err := openDatabase(c)
	if err != nil {
		return err
	}
	err = p.Migrate(command)
	return gctcommon.AppendError(err, p.Close())
}

func importCSV(c *cli.Context) error {
	loc, err := (&config.CSVData{Location: c.String("location")}).TimeLocation()
	if err != nil {
		return err
	}
	src, err := csv.NewProvider(c.String("dir"), loc)
	if err != nil {
		return err
	}
	p, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Errorln(log.Data, closeErr)
		}
	}()
	if err = p.Migrate("up"); err != nil {
		return err
	}
	for _, symbol := range c.StringSlice("symbol") {
		bars, err := src.Load(c.Context, symbol, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		if err = p.Insert(c.Context, bars...); err != nil {
			return err
		}
		fmt.Printf("%s: imported %d bars\n", strings.ToUpper(symbol), len(bars))
	}
	return nil
}
