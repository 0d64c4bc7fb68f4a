// Package config layers configuration sources for the daemon: CLI flags
// win over EVFUSE_* environment variables, which win over the TOML file.
// The Options struct itself declares the mapping through `toml` and `env`
// tags, so adding a setting never touches the loader.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evrgb/evfuse/internal/logging"
)

// LoadConfig fills opts from the TOML file and environment, leaving any
// field whose CLI flag was explicitly set untouched. opts must be a
// pointer to a struct; the TOML path is taken from its Config field.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := cliChangedFlags(cmd)

	var fileValues map[string]any
	if path := configFilePath(v, t); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &fileValues); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i)

		if changed[fieldNameToFlag(tag.Name)] {
			continue
		}

		// File first, so the environment can override it below.
		if key := tag.Tag.Get("toml"); key != "" && fileValues != nil {
			if value := getNestedValue(fileValues, key); value != nil {
				assignValue(field, value)
			}
		}
		if key := tag.Tag.Get("env"); key != "" {
			if raw := os.Getenv("EVFUSE_" + key); raw != "" {
				assignString(field, raw)
			}
		}
	}

	return nil
}

// cliChangedFlags collects the flag names the user passed explicitly.
func cliChangedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// configFilePath pulls the TOML path out of the Options struct's Config
// field, if it has one.
func configFilePath(v reflect.Value, t reflect.Type) string {
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			return v.Field(i).String()
		}
	}
	return ""
}

// fieldNameToFlag converts a struct field name to its kebab-case flag,
// matching how humacli derives flag names: "FrameQueueSize" becomes
// "frame-queue-size".
func fieldNameToFlag(fieldName string) string {
	var out []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// getNestedValue walks a decoded TOML tree along a dotted key.
func getNestedValue(data map[string]any, path string) any {
	keys := strings.Split(path, ".")
	node := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			return nil
		}
		node = next
	}
	return node[keys[len(keys)-1]]
}

// assignValue stores a decoded TOML value into a struct field, ignoring
// type mismatches so a malformed file degrades to defaults per-field.
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
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			return
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

// assignString parses an environment variable into a struct field.
// String slices use comma separation.
func assignString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoadLoggingConfig reads the [logging] table. The level and format keys
// are global; every other key is a per-module level override. Missing or
// unreadable files fall back to info/text.
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

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
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
