package cli

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMachineCommand(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		prefix string
	}{
		{name: "release dot", args: []string{"machine", "release"}, prefix: `digraph "patch-release" {`},
		{name: "patch alias", args: []string{"machine", "patch"}, prefix: `digraph "patch-release" {`},
		{name: "prep dot", args: []string{"machine", "prep", "-f", "dot"}, prefix: `digraph "prep-release" {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("machine: %v", err)
			}
			if !strings.HasPrefix(out, tt.prefix) {
				t.Errorf("output starts %q, want %q", firstLine(out), tt.prefix)
			}
		})
	}
}

func TestMachineCommand_XState(t *testing.T) {
	out, err := executeCommand(t, "machine", "prep", "--format", "xstate")
	if err != nil {
		t.Fatalf("machine: %v", err)
	}

	var machine struct {
		ID     string                     `json:"id"`
		States map[string]json.RawMessage `json:"states"`
	}
	if err := json.Unmarshal([]byte(out), &machine); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if machine.ID != "prep-release" {
		t.Errorf("id = %q, want prep-release", machine.ID)
	}
	if _, ok := machine.States["Init"]; !ok {
		t.Error("states missing Init")
	}
}

func TestMachineCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown workflow", args: []string{"machine", "hotfix"}, want: "unknown workflow"},
		{name: "unknown format", args: []string{"machine", "release", "-f", "svg"}, want: "unknown format"},
		{name: "missing workflow", args: []string{"machine"}, want: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
