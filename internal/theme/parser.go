package theme

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"reflect"
	"strconv"
	"strings"
)

var rgbaType = reflect.TypeOf(color.RGBA{})

// Parse reads a theme file. Each line is "Key: #RRGGBB", "Key: #RRGGBBAA" or
// "Key: #RGB"; unknown keys are ignored and missing keys keep their default.
func Parse(r io.Reader) (*Theme, error) {
	t := Default()
	val := reflect.ValueOf(t).Elem()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		key, value, ok := strings.Cut(text, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := Set(val, key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, scanner.Err()
}

// Set assigns value to the named field of a Theme reached through val. It is
// shared with the config file's [theme.*] sections.
func Set(val reflect.Value, key, value string) error {
	if key == "Name" {
		val.FieldByName("Name").SetString(value)
		return nil
	}
	field := val.FieldByName(key)
	if !field.IsValid() || field.Type() != rgbaType {
		return nil
	}
	col, err := ParseColor(value)
	if err != nil {
		return fmt.Errorf("invalid color for key %s: %w", key, err)
	}
	field.Set(reflect.ValueOf(col))
	return nil
}

// Apply copies the given key/value pairs onto t.
func (t *Theme) Apply(values map[string]string) error {
	val := reflect.ValueOf(t).Elem()
	for k, v := range values {
		if err := Set(val, k, v); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor parses #RGB, #RRGGBB and #RRGGBBAA.
func ParseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("color must start with #")
	}
	switch len(hex) {
	case 3:
		v, err := strconv.ParseUint(hex, 16, 16)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{
			R: uint8(v>>8&0xF) * 0x11,
			G: uint8(v>>4&0xF) * 0x11,
			B: uint8(v&0xF) * 0x11,
			A: 255,
		}, nil
	case 6:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	case 8:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid hex length")
}

// FormatColor is the inverse of ParseColor.
func FormatColor(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// Fields lists the colour keys of a theme in declaration order.
func Fields() []string {
	typ := reflect.TypeOf(Theme{})
	var keys []string
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).Type == rgbaType {
			keys = append(keys, typ.Field(i).Name)
		}
	}
	return keys
}

// Values returns the colour fields of t formatted for a theme file.
func (t *Theme) Values() map[string]string {
	val := reflect.ValueOf(t).Elem()
	out := make(map[string]string)
	for _, k := range Fields() {
		out[k] = FormatColor(val.FieldByName(k).Interface().(color.RGBA))
	}
	return out
}
