package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/quizbank/apps/shared"
	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/auth"
	"github.com/trezcool/quizbank/core/qdata"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)

	conf := &core.Config{
		AppName:   "Quizbank",
		SecretKey: "admin-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Database:  core.DatabaseConfig{Engine: shared.EngineMemory},
	}
	return &commandLine{conf: conf, svc: env.Svc, db: new(sql.DB), out: out}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if !strings.Contains(err.Error(), tt.wantErrStr) {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "createdb in memory", args: []string{"createdb"}, wantErr: errNoDatabase},
	})
	if !strings.Contains(out.String(), "translatelinks -ids") {
		t.Errorf("usage = %q; want the translatelinks command listed", out.String())
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "question_tags", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})

	cli.db = nil
	runCLITests(t, cli, []cliTest{
		{name: "no database", args: []string{"migrate", "up"}, wantErr: errNoDatabase},
	})
}

func Test_commandLine_translateLinks(t *testing.T) {
	cli, env, out := setup(t)

	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	att := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/unfiled/test.jpg")
	data := qdata.Mapping{"question_text": qdata.String(fmt.Sprintf(`<img src="/courses/15395/files/%d/download">`, att.ID))}
	q := testutil.StoreQuestion(t, env.Repo, bank.ID, data)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"translatelinks"}, wantErr: errHelp},
		{name: "invalid id", args: []string{"translatelinks", "-ids", "1,lol"}, wantErrStr: `invalid question id "lol"`},
		{name: "negative id", args: []string{"translatelinks", "-ids", "-3"}, wantErrStr: `invalid question id "-3"`},
		{name: "translate", args: []string{"translatelinks", "-ids", fmt.Sprintf("%d, 9999", q.ID)}},
	})

	if !strings.Contains(out.String(), "translated links of 1/2 question(s)") {
		t.Errorf("output = %q; want the translated count", out.String())
	}
	got, err := env.Svc.Get(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if text := got.Data.GetString("question_text"); !strings.Contains(text, "/assessment_questions/") {
		t.Errorf("question_text = %q; want a rewritten link", text)
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, _, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "no perms", args: []string{"token", "-subject", "42"}, wantErr: errHelp},
		{name: "unknown perm", args: []string{"token", "-subject", "42", "-perms", "lol"}, wantErrStr: `unknown permission "lol"`},
		{name: "token", args: []string{"token", "-subject", "42", "-perms", question.PermEdit + "," + question.PermAdd}},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	claims, err := auth.ParseToken(lines[len(lines)-1], cli.conf.SecretKey)
	if err != nil {
		t.Fatalf("ParseToken() failed: %v", err)
	}
	if claims.Subject != "42" || claims.Issuer != "Quizbank" {
		t.Errorf("claims = %+v; want subject 42 issued by Quizbank", claims.StandardClaims)
	}
	if !question.Can(claims.Permissions, question.ActionUpdate) {
		t.Errorf("claims.Permissions = %v; want update granted", claims.Permissions)
	}
}
