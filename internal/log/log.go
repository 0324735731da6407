// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package log is the core's ambient logging setup: one named,
// structured logger per package, built on the teacher's own logging
// dependency. Ground: bnb-chain-tss-lib go.mod direct/indirect
// dependency on github.com/ipfs/go-log (v1) and github.com/ipfs/go-
// log/v2; this core standardizes on v2 since every component is new
// code written for this module.
package log

import (
	logging "github.com/ipfs/go-log/v2"
)

// Logger is the subset of *logging.ZapEventLogger this core depends
// on, kept narrow so components can be tested against a fake.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Named returns the structured logger for the given package/component
// name, e.g. Named("session"), Named("manager").
func Named(name string) Logger {
	return logging.Logger("mpc-core/" + name)
}

// SetLevel adjusts the log level of every mpc-core logger at once; used
// by cmd/mpcd's -log-level flag.
func SetLevel(level string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return err
	}
	logging.SetAllLoggers(lvl)
	return nil
}
