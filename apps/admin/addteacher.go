package main

import (
	"context"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/teacher"
)

// addTeacher creates a teacher, or resets the name and password of the teacher owning email.
func (cli *commandLine) addTeacher(uname, email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	uname = core.CleanString(uname)

	t, err := cli.teachers.GetByEmail(ctx, email)
	switch {
	case core.IsNotFound(err):
		nt := teacher.NewTeacher{Username: uname, Email: email, Password: pwd}
		if err := nt.Validate(cli.validate, cli.teachers); err != nil {
			return err
		}
		_, err = cli.teachers.Register(ctx, nt)
		return err
	case err != nil:
		return err
	}

	if uname != "" {
		t.Username = uname
	}
	if err := t.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.teachers.Save(ctx, t)
	return err
}
