package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/services/reminder"
)

// output formats
const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	engine    string
	debtSvc   *debt.Service
	digestSvc *remindersvc.Service
	out       io.Writer
	outFd     int
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                        - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  overdue [-format table|json]                  - list overdue students")
	fmt.Fprintln(cli.out, "  upcoming [-days N] [-format table|json]       - list students due within N days")
	fmt.Fprintln(cli.out, "  debts [-student ID] [-format table|json]      - detail this month's debts")
	fmt.Fprintln(cli.out, "  export -report overdue|debts -out FILE.xlsx   - save a report as a spreadsheet")
	fmt.Fprintln(cli.out, "  digest                                        - run the overdue digest once")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// resolveFormat defaults to a table on a terminal and to JSON otherwise.
func (cli *commandLine) resolveFormat(format string) (string, error) {
	switch format {
	case formatTable, formatJSON:
		return format, nil
	case "":
		if isTerminalFunc(cli.outFd) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", errors.Errorf("unknown format %q", format)
	}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	overdueCmd := cli.newFlagSet("overdue")
	overdueFormat := overdueCmd.String("format", "", "Output format: table or json. Defaults to table on a terminal.")

	upcomingCmd := cli.newFlagSet("upcoming")
	upcomingDays := upcomingCmd.Int("days", -1, "Look-ahead window in days. Defaults to the configured window.")
	upcomingFormat := upcomingCmd.String("format", "", "Output format: table or json. Defaults to table on a terminal.")

	debtsCmd := cli.newFlagSet("debts")
	debtsStudent := debtsCmd.Int("student", 0, "Only show this student.")
	debtsFormat := debtsCmd.String("format", "", "Output format: table or json. Defaults to table on a terminal.")

	exportCmd := cli.newFlagSet("export")
	exportReport := exportCmd.String("report", "", "The report to export: overdue or debts.")
	exportOut := exportCmd.String("out", "", "The spreadsheet to write.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "overdue":
		if err := cli.parse(overdueCmd, args[2:]); err != nil {
			return err
		}
		format, err := cli.resolveFormat(*overdueFormat)
		if err != nil {
			return err
		}
		return cli.overdue(format)

	case "upcoming":
		if err := cli.parse(upcomingCmd, args[2:]); err != nil {
			return err
		}
		format, err := cli.resolveFormat(*upcomingFormat)
		if err != nil {
			return err
		}
		return cli.upcoming(*upcomingDays, format)

	case "debts":
		if err := cli.parse(debtsCmd, args[2:]); err != nil {
			return err
		}
		format, err := cli.resolveFormat(*debtsFormat)
		if err != nil {
			return err
		}
		return cli.debts(*debtsStudent, format)

	case "export":
		if err := cli.parse(exportCmd, args[2:]); err != nil {
			return err
		}
		if *exportOut == "" || (*exportReport != "overdue" && *exportReport != "debts") {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportReport, *exportOut)

	case "digest":
		return cli.digest()

	default:
		cli.printUsage()
		return errHelp
	}
}
