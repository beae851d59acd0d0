package main

import (
	"context"
	"strings"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

func (cli *commandLine) resetPassword(kind user.Role, identifier, pwd string) error {
	ctx := context.Background()
	if kind == user.Student {
		s, err := cli.students.GetByRollNo(ctx, strings.ToUpper(core.CleanString(identifier)))
		if err != nil {
			return err
		}
		if err := s.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.students.Save(ctx, s)
		return err
	}

	t, err := cli.teachers.GetByEmail(ctx, identifier)
	if err != nil {
		return err
	}
	if err := t.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.teachers.Save(ctx, t)
	return err
}
