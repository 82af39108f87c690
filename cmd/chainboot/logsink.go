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
	"os"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// newLogger picks the program's logging.Logger the way lazydocker's
// pkg/log.NewLogger does: quiet by default, a verbose logrus-backed logger
// when CHAINBOOT_DEBUG is set, with the level additionally tunable via
// CHAINBOOT_LOG_LEVEL.
func newLogger() logging.Logger {
	if os.Getenv("CHAINBOOT_DEBUG") == "" {
		return logging.NewNopLogger()
	}

	log := logrus.New()
	log.Out = os.Stderr
	log.Level = logLevelFromEnv()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}

	return logging.NewLogrLogger(logr.New(&logrusSink{entry: logrus.NewEntry(log)}))
}

func logLevelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("CHAINBOOT_LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

// logrusSink adapts a *logrus.Entry to logr.LogSink. crossplane-runtime's
// logging.Logger is built on logr; the rest of the stack (including every
// call site in this program) speaks logging.Logger, so this is the one place
// logrus's own API is visible.
type logrusSink struct {
	entry *logrus.Entry
}

func (s *logrusSink) Init(_ logr.RuntimeInfo) {}

func (s *logrusSink) Enabled(_ int) bool { return true }

func (s *logrusSink) Info(_ int, msg string, keysAndValues ...interface{}) {
	s.entry.WithFields(fieldsFromKeysAndValues(keysAndValues)).Info(msg)
}

func (s *logrusSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.entry.WithFields(fieldsFromKeysAndValues(keysAndValues)).WithError(err).Error(msg)
}

func (s *logrusSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &logrusSink{entry: s.entry.WithFields(fieldsFromKeysAndValues(keysAndValues))}
}

func (s *logrusSink) WithName(name string) logr.LogSink {
	return &logrusSink{entry: s.entry.WithField("logger", name)}
}

func fieldsFromKeysAndValues(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
