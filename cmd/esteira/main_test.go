// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"io"
	"testing"
	"time"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{
		"capture", "pipeline", "pause", "resume", "status",
		"progress", "revalidate", "protocolar", "reportar",
	} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-05-02")
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	if !d.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", d)
	}
	if d, err := parseDate(""); err != nil || d != nil {
		t.Errorf("empty date = %v, %v", d, err)
	}
	if _, err := parseDate("02/05/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestParseRecordID(t *testing.T) {
	if id, err := parseRecordID("42"); err != nil || id != 42 {
		t.Errorf("parseRecordID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc"} {
		if _, err := parseRecordID(bad); err == nil {
			t.Errorf("parseRecordID(%q) should fail", bad)
		}
	}
}

func TestReportarRequiresFlags(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"reportar", "7"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Error("expected missing required flags error")
	}
}
