/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Registry(t *testing.T) {
	l := NewLogger("REGISTRY_TEST")
	assert.Same(t, l, NewLogger("REGISTRY_TEST"))

	assert.True(t, SetLoggerLevel("REGISTRY_TEST", "warn"))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING_TEST", "warn"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", NameWidth: 10, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "Generated SQL",
		Data:    logrus.Fields{"sql": "SELECT 1", "operation": "find"},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	line := string(b)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "   INFO")
	assert.Contains(t, line, "  DATABASE")
	assert.Contains(t, line, "Generated SQL operation=find sql=SELECT 1\n")
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATABASE"}
	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.WarnLevel,
		Message: "slow query",
		Data:    logrus.Fields{"error": errors.New("boom"), "rows": 3},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "DATABASE", rec["model"])
	assert.Equal(t, "slow query", rec["message"])
	assert.Equal(t, map[string]interface{}{"error": "boom", "rows": float64(3)}, rec["fields"])
}

func TestSetConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("OUTPUT_TEST")
	SetConsoleOutput(&buf)
	t.Cleanup(func() { SetConsoleOutput(os.Stdout) })

	l.SetLevel(logrus.InfoLevel)
	l.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_BOOL", "true")
	t.Setenv("UTILS_TEST_BAD_BOOL", "maybe")
	t.Setenv("UTILS_TEST_STRING", "value")

	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BAD_BOOL", true))
	assert.False(t, EnvDefaultBool("UTILS_TEST_UNSET", false))
	assert.Equal(t, "value", EnvDefaultString("UTILS_TEST_STRING", "x"))
	assert.Equal(t, "x", EnvDefaultString("UTILS_TEST_UNSET", "x"))
}

func TestParseSeconds(t *testing.T) {
	d, ok := ParseSeconds("30")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)

	d, ok = ParseSeconds("1.5s")
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, ok = ParseSeconds("soon")
	assert.False(t, ok)
}
