// Package env reads dotenv files and expands ${VAR} references in
// configuration text.
package env

import (
	"os"
	"strings"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses an environment file. A missing file yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return []EnvLine{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEnvBuffer(buf), nil
}

// ParseEnvBuffer parses KEY=value lines, skipping blanks and comments.
// Values may reference earlier or later keys with ${KEY} or ${KEY:-default}.
func ParseEnvBuffer(buf []byte) []EnvLine {
	envs := make([]EnvLine, 0)
	vars := make(map[string]string)
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		el := ProcessEnvLine(strings.TrimPrefix(line, "export "))
		if el.Key == "" {
			continue
		}
		el.Val = Interpolate(el.Val, vars)
		vars[el.Key] = el.Val
		envs = append(envs, el)
	}
	// second pass so forward references resolve
	for i := range envs {
		envs[i].Val = Interpolate(envs[i].Val, vars)
	}
	return envs
}

// ProcessEnvLine splits a KEY=value line and removes quotes around the value.
func ProcessEnvLine(line string) EnvLine {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return EnvLine{Key: strings.TrimSpace(line)}
	}
	return EnvLine{Key: strings.TrimSpace(key), Val: dequote(strings.TrimSpace(val))}
}

// LoadEnvFile exports every variable of filename that is not already set in
// the process environment.
func LoadEnvFile(filename string) error {
	lines, err := ParseEnvFile(filename)
	if err != nil {
		return err
	}
	for _, el := range lines {
		if _, ok := os.LookupEnv(el.Key); ok {
			continue
		}
		if err := os.Setenv(el.Key, el.Val); err != nil {
			return err
		}
	}
	return nil
}

func dequote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

type reference struct {
	varName      string
	defaultValue string
}

func parseReference(ref string) reference {
	// strip ${ and }
	name, def, _ := strings.Cut(ref[2:len(ref)-1], ":-")
	return reference{varName: name, defaultValue: def}
}

// Interpolate replaces ${NAME} and ${NAME:-default} with values from vars.
// ${env:NAME} reads the process environment instead. References that
// cannot be resolved and have no default are left untouched, as is
// malformed input.
func Interpolate(input string, vars map[string]string) string {
	if input == "" || strings.Count(input, "${") != strings.Count(input, "}") {
		return input
	}
	var result strings.Builder
	lastPos := 0
	for i := 0; i+1 < len(input); i++ {
		if input[i] != '$' || input[i+1] != '{' {
			continue
		}
		result.WriteString(input[lastPos:i])
		end := strings.IndexByte(input[i+2:], '}')
		if end == -1 {
			result.WriteString(input[i:])
			return result.String()
		}
		end += i + 2
		refStr := input[i : end+1]
		ref := parseReference(refStr)
		var val string
		var ok bool
		if name, isEnv := strings.CutPrefix(ref.varName, "env:"); isEnv {
			val = os.Getenv(name)
			ok = val != ""
		} else {
			val, ok = vars[ref.varName]
			ok = ok && val != ""
		}
		switch {
		case ref.varName == "":
			result.WriteString(refStr)
		case ok:
			result.WriteString(val)
		case ref.defaultValue != "":
			result.WriteString(ref.defaultValue)
		default:
			result.WriteString(refStr)
		}
		i = end
		lastPos = end + 1
	}
	result.WriteString(input[lastPos:])
	return result.String()
}
