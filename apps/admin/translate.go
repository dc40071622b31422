package main

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core/auth"
	"github.com/trezcool/quizbank/core/question"
)

// translateLinks re-runs the link pass on each question and reports how many were processed.
func (cli *commandLine) translateLinks(ids []int64) error {
	n, err := cli.svc.TranslateLinksByIDs(context.Background(), ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "translated links of %d/%d question(s)\n", n, len(ids))
	return nil
}

func (cli *commandLine) token(subject string, perms []string) error {
	checks := []vala.Checker{vala.StringNotEmpty(subject, "subject")}
	for _, perm := range perms {
		checks = append(checks, knownPerm(perm))
	}
	if err := vala.BeginValidation().Validate(checks...).Check(); err != nil {
		return err
	}

	token, err := auth.GenerateToken(auth.NewClaims(subject, perms, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func knownPerm(perm string) vala.Checker {
	return func() (bool, string) {
		return question.IsPerm(perm), fmt.Sprintf("unknown permission %q", perm)
	}
}
