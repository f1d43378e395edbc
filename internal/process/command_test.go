package process

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"npm start", []string{"npm", "start"}},
		{`sh -c "echo hello"`, []string{"sh", "-c", "echo hello"}},
		{`echo 'single quoted arg'`, []string{"echo", "single quoted arg"}},
		{`echo hello\ world`, []string{"echo", "hello world"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`echo "it's nested"`, []string{"echo", "it's nested"}},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.input)
		if err != nil {
			t.Errorf("ParseCommand(%q) error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseCommandUnclosedQuote(t *testing.T) {
	if _, err := ParseCommand(`echo "unclosed`); err == nil {
		t.Error("expected error for unclosed quote")
	}
}

func TestNeedsManifest(t *testing.T) {
	for _, launcher := range []string{"npm", "npx", "yarn", "pnpm", "bun"} {
		if !NeedsManifest(launcher) {
			t.Errorf("NeedsManifest(%s) = false, want true", launcher)
		}
	}
	for _, launcher := range []string{"node", "sh", "python3", ""} {
		if NeedsManifest(launcher) {
			t.Errorf("NeedsManifest(%s) = true, want false", launcher)
		}
	}
}
