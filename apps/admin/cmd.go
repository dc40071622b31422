package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/question"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	svc  *question.Service
	db   *sql.DB // nil with the in-memory store
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createdb - create the application role and database if missing")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  translatelinks -ids 1,2,3 - re-run the link translation pass on questions")
	fmt.Fprintln(cli.out, "  token -subject SUBJECT -perms PERM[,PERM] - print a signed API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	translateCmd := flag.NewFlagSet("translatelinks", flag.ExitOnError)
	translateIDs := translateCmd.String("ids", "", "Comma separated question ids.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenSubject := tokenCmd.String("subject", "", "The token subject, usually a user id.")
	tokenPerms := tokenCmd.String("perms", "", "Comma separated permissions: "+
		strings.Join([]string{question.PermEdit, question.PermAdd, question.PermDelete}, ", "))

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "translatelinks":
		if err := translateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *translateIDs == "" {
			translateCmd.Usage()
			return errHelp
		}
		ids, err := parseIDs(*translateIDs)
		if err != nil {
			return err
		}
		return cli.translateLinks(ids)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSubject == "" || *tokenPerms == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, splitList(*tokenPerms))
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func parseIDs(s string) ([]int64, error) {
	items := splitList(s)
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid question id %q", item)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
