// Command planctl edits the training schedule from a terminal. It drives the same sync
// controller as the browser page, against the local SQLite cache or a running server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	_ "modernc.org/sqlite"

	"trainingplan/internal/adapters/grid"
	"trainingplan/internal/adapters/http/perf"
	"trainingplan/internal/adapters/notify"
	"trainingplan/internal/adapters/remote"
	"trainingplan/internal/adapters/spreadsheet"
	"trainingplan/internal/adapters/storage"
	scheduleStore "trainingplan/internal/adapters/storage/schedule"
	"trainingplan/internal/application/controller"
	"trainingplan/internal/application/orchestrators"
	"trainingplan/internal/config"
	"trainingplan/internal/domain/schedule"
	"trainingplan/internal/domain/session"
)

// Backends
const (
	backendLocal  = "local"
	backendRemote = "remote"
)

const usageText = `usage: planctl [flags] <command> [args]

commands:
  show                    print the schedule
  set ROW COL VALUE       set one cell (empty VALUE clears it)
  title TEXT              rename the schedule
  clear                   blank every cell and save
  delete                  reset the stored schedule to defaults
  import FILE             replace the schedule from an .xlsx or .xls workbook
  export [-format F] [-o PATH]
                          write csv (default) or xlsx; -o - writes to stdout
  login [-guest] [-password P] [USER]
                          sign in; the password is read from stdin when omitted
  logout                  drop back to guest
  whoami                  print the current user

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli holds the wiring for one invocation.
type cli struct {
	cfg       config.Config
	state     session.State
	store     controller.Store
	collector *perf.Collector
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("planctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := fs.String("backend", backendLocal, "schedule backend: local or remote")
	apiURL := fs.String("api", "", "server URL for -backend remote (default $PLAN_API_URL)")
	dbPath := fs.String("db", "planctl.db", "SQLite file holding the local schedule and session flags")
	verbose := fs.Bool("v", false, "debug logging and a timing summary on exit")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "planctl: %v\n", err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "planctl: invalid configuration: %v\n", err)
		return 1
	}

	db, err := storage.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "planctl: %v\n", err)
		return 1
	}
	defer db.Close()
	if err := storage.InitDB(db); err != nil {
		fmt.Fprintf(stderr, "planctl: %v\n", err)
		return 1
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timed := storage.NewTimedDB(db, collector)
	c := &cli{
		cfg:       cfg,
		state:     storage.NewLocalState(timed),
		collector: collector,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
	}

	switch *backend {
	case backendLocal:
		c.store = scheduleStore.NewSQLiteStore(timed)
	case backendRemote:
		base := *apiURL
		if base == "" {
			base = cfg.APIURL
		}
		rc, err := remote.New(base, remote.WithTimeout(cfg.RequestTimeout), remote.WithCollector(collector))
		if err != nil {
			fmt.Fprintf(stderr, "planctl: %v\n", err)
			return 2
		}
		c.store = rc
	default:
		fmt.Fprintf(stderr, "planctl: unknown backend %q\n", *backend)
		return 2
	}

	start := time.Now()
	code := c.dispatch(context.Background(), fs.Arg(0), fs.Args()[1:])
	if *verbose {
		c.printTimings(start)
	}
	return code
}

// dispatch routes a command. Session commands never touch the schedule backend.
func (c *cli) dispatch(ctx context.Context, cmd string, args []string) int {
	switch cmd {
	case "login":
		return c.login(args)
	case "whoami":
		fmt.Fprintln(c.stdout, session.Resolve(c.state).DisplayName())
		return 0
	case "logout":
		ctrl, _ := c.controller()
		ctrl.Logout(c.state)
		return 0
	case "show", "set", "title", "clear", "delete", "import", "export":
	default:
		fmt.Fprintf(c.stderr, "planctl: unknown command %q\n", cmd)
		return 2
	}

	ctrl, g := c.controller()
	ctrl.Init(ctx)

	err := c.edit(ctx, ctrl, g, cmd, args)
	if ferr := ctrl.Flush(ctx); err == nil {
		err = ferr
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(c.stderr, "planctl: %v\n", err)
		return 2
	case errors.Is(err, controller.ErrNotPermitted), errors.Is(err, grid.ErrReadOnly):
		fmt.Fprintf(c.stderr, "planctl: %s requires an admin session (planctl login USER)\n", cmd)
		return 1
	default:
		fmt.Fprintf(c.stderr, "planctl: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// controller builds a sync controller for the resolved session over the chosen backend.
func (c *cli) controller() (*controller.Controller, *grid.Memory) {
	g := grid.NewMemory(schedule.ColumnHeaders)
	ctrl := controller.New(controller.Deps{
		Store:    c.store,
		Grid:     g,
		Notifier: notify.Multi{notify.Slog{}, notify.Func(c.printNotification)},
	}, controller.Options{
		Session:  session.Resolve(c.state),
		Debounce: c.cfg.Debounce,
	})
	g.Subscribe(ctrl.HandleGridEvent)
	return ctrl, g
}

func (c *cli) printNotification(n notify.Notification) {
	fmt.Fprintf(c.stderr, "[%s] %s\n", n.Level, n.Message)
}

func (c *cli) edit(ctx context.Context, ctrl *controller.Controller, g *grid.Memory, cmd string, args []string) error {
	switch cmd {
	case "show":
		return printSchedule(c.stdout, ctrl.Document(), g.ColumnHeaders())

	case "set":
		if len(args) != 3 {
			return usageErr("set ROW COL VALUE")
		}
		row, err := strconv.Atoi(args[0])
		if err != nil {
			return usageErr("row %q is not a number", args[0])
		}
		col, err := strconv.Atoi(args[1])
		if err != nil {
			return usageErr("column %q is not a number", args[1])
		}
		var value *string
		if args[2] != "" {
			value = schedule.Text(args[2])
		}
		if err := g.SetCell(row, col, value); err != nil {
			if errors.Is(err, grid.ErrOutOfRange) {
				return usageErr("cell (%d,%d) is out of range", row, col)
			}
			return err
		}
		return nil

	case "title":
		if len(args) == 0 {
			return usageErr("title TEXT")
		}
		return ctrl.EditTitle(strings.Join(args, " "))

	case "clear":
		return ctrl.Clear(ctx)

	case "delete":
		return ctrl.Delete(ctx)

	case "import":
		if len(args) != 1 {
			return usageErr("import FILE")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return ctrl.Import(ctx, filepath.Base(args[0]), data)

	case "export":
		return c.export(ctrl, args)
	}
	return nil
}

func (c *cli) export(ctrl *controller.Controller, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	format := fs.String("format", spreadsheet.FormatCSV, "csv or xlsx")
	out := fs.String("o", "", "output path (default derived from the title, - for stdout)")
	if err := fs.Parse(args); err != nil {
		return usageErr("export [-format F] [-o PATH]")
	}
	if !spreadsheet.ValidFormat(*format) {
		return usageErr("unsupported export format %q", *format)
	}

	if *out == "-" {
		return ctrl.Export(c.stdout, *format)
	}
	path := *out
	if path == "" {
		path = ctrl.ExportFilename(*format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ctrl.Export(f, *format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, path)
	return nil
}

func (c *cli) login(args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	guest := fs.Bool("guest", false, "continue as guest")
	password := fs.String("password", "", "admin password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	input := orchestrators.LoginInput{AsGuest: *guest}
	if !*guest {
		input.Username = c.cfg.AdminUser
		if fs.NArg() > 0 {
			input.Username = fs.Arg(0)
		}
		input.Password = *password
		if input.Password == "" {
			fmt.Fprint(c.stderr, "Password: ")
			line, err := bufio.NewReader(c.stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				fmt.Fprintf(c.stderr, "planctl: %v\n", err)
				return 1
			}
			input.Password = strings.TrimRight(line, "\r\n")
		}
	}

	sess, err := orchestrators.ExecuteLogin(input, orchestrators.LoginDeps{
		Credential: c.cfg.Credential(),
		State:      c.state,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "planctl: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, sess.DisplayName())
	return 0
}

// printSchedule renders the title and a numbered table of rows.
func printSchedule(w io.Writer, doc schedule.Document, headers []string) error {
	fmt.Fprintln(w, doc.Title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\t"+strings.Join(headers, "\t"))
	for i, row := range doc.Rows {
		cells := make([]string, len(headers))
		for j := range cells {
			if j < len(row) {
				cells[j] = schedule.Value(row[j])
			}
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (c *cli) printTimings(start time.Time) {
	snap := c.collector.Snapshot(start, 10)
	fmt.Fprintf(c.stderr, "timings: %d recorded\n", snap.TotalRecorded)
	for _, p := range snap.SlowestRemote {
		fmt.Fprintf(c.stderr, "  remote %-24s count=%d avg=%.1fms max=%.1fms\n", p.Path, p.Count, p.AvgMs, p.MaxMs)
	}
	for _, p := range snap.SlowestQueries {
		fmt.Fprintf(c.stderr, "  query  %-24s count=%d avg=%.1fms max=%.1fms\n", p.Path, p.Count, p.AvgMs, p.MaxMs)
	}
}
