/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogrusSinkInfoIncludesFieldsAndMessage(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}

	sink := &logrusSink{entry: logrus.NewEntry(log)}
	sink.Info(0, "laid out package", "package", "pkgA")

	out := buf.String()
	if !strings.Contains(out, "laid out package") || !strings.Contains(out, "package=pkgA") {
		t.Errorf("Info output = %q, want message and package field", out)
	}
}

func TestLogrusSinkErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}

	sink := &logrusSink{entry: logrus.NewEntry(log)}
	sink.Error(errors.New("boom"), "apply failed")

	out := buf.String()
	if !strings.Contains(out, "apply failed") || !strings.Contains(out, "boom") {
		t.Errorf("Error output = %q, want message and wrapped error", out)
	}
}

func TestLogrusSinkWithValuesAndWithNameCompose(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}

	sink := &logrusSink{entry: logrus.NewEntry(log)}
	named := sink.WithName("cache").WithValues("bundle", "example")
	named.Info(0, "caching")

	out := buf.String()
	if !strings.Contains(out, `logger=cache`) || !strings.Contains(out, `bundle=example`) {
		t.Errorf("WithName/WithValues output = %q, want both fields", out)
	}
}

func TestLogLevelFromEnvFallsBackToDebug(t *testing.T) {
	t.Setenv("CHAINBOOT_LOG_LEVEL", "not-a-level")
	if got := logLevelFromEnv(); got != logrus.DebugLevel {
		t.Errorf("logLevelFromEnv() = %v, want DebugLevel fallback", got)
	}

	t.Setenv("CHAINBOOT_LOG_LEVEL", "warn")
	if got := logLevelFromEnv(); got != logrus.WarnLevel {
		t.Errorf("logLevelFromEnv() = %v, want WarnLevel", got)
	}
}

func TestNewLoggerIsNopWithoutDebugEnv(t *testing.T) {
	t.Setenv("CHAINBOOT_DEBUG", "")

	// Exercises the Nop branch; logging.Logger has no exported state to
	// assert on, so this only confirms newLogger does not panic and returns
	// a non-nil logger.
	if log := newLogger(); log == nil {
		t.Fatal("newLogger() = nil, want a logger")
	}
}
