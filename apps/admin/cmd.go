package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	// indexer is implemented by the MongoDB store; nil for the in-memory store.
	indexer interface {
		EnsureIndexes(ctx context.Context) error
	}

	reconciler interface {
		ReconcileAll(ctx context.Context) (int, error)
	}
)

type commandLine struct {
	db         indexer
	validate   *validator.Validate
	students   *student.Service
	teachers   *teacher.Service
	reconciler reconciler
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addteacher -username USERNAME -email EMAIL - create a teacher, or reset an existing one")
	fmt.Println("  resetpassword -kind student|teacher -identifier ROLLNO|EMAIL - reset an account's password")
	fmt.Println("  reconcile - repair request drift across all students")
	fmt.Println("  migrate - create the database indexes")
}

// promptPassword reads a password without echo; the password policy applies.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	if err := cli.validate.Var(string(pwd), user.PasswordPolicyTag); err != nil {
		return "", errPasswordTooShort
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's display name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordKind := resetPasswordCmd.String("kind", "", "The account kind: student or teacher.")
	resetPasswordID := resetPasswordCmd.String("identifier", "", "The student's roll number or the teacher's email. The password will be prompted next.")

	switch args[1] {
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addTeacherCmd)
		if err != nil {
			return err
		}
		return cli.addTeacher(*addTeacherUname, *addTeacherEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := user.ParseRole(*resetPasswordKind)
		if *resetPasswordID == "" || err != nil || kind == user.Admin {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(kind, *resetPasswordID, pwd)

	case "reconcile":
		return cli.reconcile()

	case "migrate":
		return cli.migrate()

	default:
		cli.printUsage()
		return errHelp
	}
}
