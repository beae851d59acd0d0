package main

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	errNoIndexes        = errors.New("migrate needs a MongoDB store")
	errPasswordTooShort = errors.New("password is too short")
)

const opTimeout = 5 * time.Minute

func (cli *commandLine) migrate() error {
	if cli.db == nil {
		return errNoIndexes
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return cli.db.EnsureIndexes(ctx)
}

func (cli *commandLine) reconcile() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	n, err := cli.reconciler.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d students checked\n", n)
	return nil
}
