package main

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerWritesToStandardOutput(t *testing.T) {
	log := newLogger(false)
	if log.Out != os.Stdout {
		t.Fatalf("logger output = %v, want os.Stdout", log.Out)
	}
}

func TestNewLoggerHonorsDebugFlag(t *testing.T) {
	log := newLogger(true)
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}
