package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Setting is one scalar leaf of Config, addressed by its JSON path
// (e.g. "parrot.maxTokens").
type Setting struct {
	Path   string
	Secret bool // tagged secret:"true"; masked by Sanitize
	rule   string
	value  reflect.Value
}

// Value returns the current value of the setting.
func (s Setting) Value() any { return s.value.Interface() }

// Settings returns every leaf of cfg in declaration order. The returned
// settings alias cfg.
func Settings(cfg *Config) []Setting {
	var out []Setting
	collectSettings("", reflect.ValueOf(cfg).Elem(), &out)
	return out
}

func collectSettings(prefix string, v reflect.Value, out *[]Setting) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			collectSettings(name, v.Field(i), out)
			continue
		}
		*out = append(*out, Setting{
			Path:   name,
			Secret: f.Tag.Get("secret") == "true",
			rule:   f.Tag.Get("validate"),
			value:  v.Field(i),
		})
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func lookup(cfg *Config, path string) (Setting, error) {
	for _, s := range Settings(cfg) {
		if s.Path == path {
			return s, nil
		}
	}
	return Setting{}, fmt.Errorf("unknown config key %q (see 'parrotbot config list')", path)
}

// IsSecret reports whether path names a masked setting.
func IsSecret(path string) bool {
	s, err := lookup(Defaults(), path)
	return err == nil && s.Secret
}

// GetByPath returns the value at path.
func GetByPath(cfg *Config, path string) (any, error) {
	s, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return s.Value(), nil
}

// SetByPath parses raw into the type of the setting at path, checks it
// against the field's validate rule and stores it. Cross-field checks are
// left to Validate.
func SetByPath(cfg *Config, path, raw string) error {
	s, err := lookup(cfg, path)
	if err != nil {
		return err
	}
	v, err := parseSetting(s.value.Type(), raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if s.rule != "" {
		if err := validate.Var(v.Interface(), s.rule); err != nil {
			return fmt.Errorf("%s: %q does not satisfy %s", path, raw, s.rule)
		}
	}
	s.value.Set(v)
	return nil
}

// parseSetting converts raw to t. Lists are comma separated.
func parseSetting(t reflect.Type, raw string) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, fmt.Errorf("%q is not a boolean", raw)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return v, fmt.Errorf("%q is not an integer", raw)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return v, fmt.Errorf("%q is not a number", raw)
		}
		v.SetFloat(f)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return v, fmt.Errorf("unsupported list type %s", t)
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		list := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			list.Index(i).SetString(item)
		}
		v.Set(list)
	default:
		return v, fmt.Errorf("unsupported type %s", t)
	}
	return v, nil
}

// Sanitize returns a copy of cfg with secret settings masked.
func Sanitize(cfg *Config) *Config {
	masked := *cfg
	for _, s := range Settings(&masked) {
		if s.Secret && s.value.Kind() == reflect.String && s.value.String() != "" {
			s.value.SetString(maskString(s.value.String()))
		}
	}
	return &masked
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
