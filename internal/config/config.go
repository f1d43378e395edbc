package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/projectnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to env tag names when reading environment overrides.
const EnvPrefix = "PROJECTNODE_"

// LoadConfig fills opts with precedence CLI flag > environment > TOML file.
// Flags explicitly set on cmd are left alone; the file path comes from the
// struct's Config field. Field tags drive the lookup: `toml` holds a
// dotted path into the file, `env` the suffix after EnvPrefix.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	pinned := flagOverrides(cmd)

	fileValues, err := readTomlFile(v)
	if err != nil {
		return err
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		meta := t.Field(i)
		if pinned[flagNameFor(meta.Name)] {
			continue
		}

		if path := meta.Tag.Get("toml"); path != "" && fileValues != nil {
			if value := lookupPath(fileValues, path); value != nil {
				assignValue(field, value)
			}
		}
		// Environment wins over the file
		if key := meta.Tag.Get("env"); key != "" {
			if raw := os.Getenv(EnvPrefix + key); raw != "" {
				assignString(field, raw)
			}
		}
	}

	return nil
}

// flagOverrides collects the names of flags the user set explicitly.
func flagOverrides(cmd *cobra.Command) map[string]bool {
	pinned := make(map[string]bool)
	if cmd == nil {
		return pinned
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		pinned[f.Name] = true
	})
	return pinned
}

// readTomlFile parses the TOML file named by the struct's Config field.
// A missing or unset file is not an error; a malformed one is.
func readTomlFile(v reflect.Value) (map[string]any, error) {
	cfgField := v.FieldByName("Config")
	if !cfgField.IsValid() || cfgField.Kind() != reflect.String {
		return nil, nil
	}
	path := cfgField.String()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}

	var values map[string]any
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return values, nil
}

// flagNameFor lowercases a field name with dashes at word boundaries,
// matching how humacli derives flag names ("LogBufferSize" -> "log-buffer-size").
func flagNameFor(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookupPath walks a dotted path through nested TOML tables.
func lookupPath(values map[string]any, path string) any {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := values[key].(map[string]any)
		if !ok {
			return nil
		}
		values = next
	}
	return values[keys[len(keys)-1]]
}

// assignValue stores a decoded TOML value into a struct field.
func assignValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		items, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

// assignString stores an environment variable value into a struct field,
// splitting on commas for string slices.
func assignString(field reflect.Value, raw string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if n, err := strconv.Atoi(raw); err == nil {
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoadLoggingConfig reads the [logging] table from a TOML config file.
// level and format are reserved keys; every other key names a module and
// its level override. Missing or unreadable files yield the defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var file struct {
		Logging map[string]string `toml:"logging"`
	}
	if toml.Unmarshal(data, &file) != nil {
		return cfg
	}

	for key, value := range file.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
