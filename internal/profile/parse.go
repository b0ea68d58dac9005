// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type (
	entry struct {
		key   string
		value string
		line  int
	}

	section struct {
		name    string
		line    int
		entries []entry
	}
)

// lex splits INI-style content into sections. Content before the first
// header lands in a section with an empty name. Indented lines continue the
// previous value.
func lex(r io.Reader, source string) ([]*section, error) {
	var (
		sections = []*section{{name: ""}}
		cur      = sections[0]
		last     *entry
		lineNo   int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}

		if (raw[0] == ' ' || raw[0] == '\t') && last != nil {
			last.value += "\n" + line
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Source: source, Line: lineNo, Msg: "unterminated section header"}
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, &ParseError{Source: source, Line: lineNo, Msg: "empty section name"}
			}
			for _, s := range sections {
				if s.name == name {
					return nil, &ParseError{Source: source, Line: lineNo, Msg: fmt.Sprintf("section %q already defined on line %d", name, s.line)}
				}
			}
			cur = &section{name: name, line: lineNo}
			sections = append(sections, cur)
			last = nil
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ParseError{Source: source, Line: lineNo, Msg: fmt.Sprintf("expected key=value, got %q", line)}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ParseError{Source: source, Line: lineNo, Msg: "empty key"}
		}
		cur.entries = append(cur.entries, entry{key: key, value: strings.TrimSpace(value), line: lineNo})
		last = &cur.entries[len(cur.entries)-1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	return sections, nil
}

// Parse reads a stored, header-less environment file.
func Parse(r io.Reader, source string, name Name) (*Environment, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	sections, err := lex(r, source)
	if err != nil {
		return nil, err
	}
	if len(sections) > 1 {
		return nil, &ParseError{Source: source, Line: sections[1].line, Msg: "stored configuration must not contain section headers"}
	}

	return fromEntries(name, source, sections[0].entries, true)
}

// ParseFile reads a stored, header-less environment file from disk.
func ParseFile(path string, name Name) (*Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, path, name)
}

func fromEntries(name Name, source string, entries []entry, strictImage bool) (*Environment, error) {
	env := &Environment{Name: name}
	imageLine := 0

	for _, e := range entries {
		switch e.key {
		case KeyImage:
			if strictImage && imageLine != 0 {
				return nil, &ParseError{Source: source, Line: e.line, Msg: fmt.Sprintf("image already declared on line %d", imageLine)}
			}
			env.Image = unquote(e.value)
			imageLine = e.line
		case KeyPackages:
			pkgs, err := SplitPackages(e.value)
			if err != nil {
				return nil, &ParseError{Source: source, Line: e.line, Msg: err.Error()}
			}
			env.Packages = append(env.Packages, pkgs...)
		case KeyPreInitHooks, KeyInitHooks:
			hooks, err := SplitHooks(e.value)
			if err != nil {
				return nil, &ParseError{Source: source, Line: e.line, Msg: err.Error()}
			}
			if e.key == KeyPreInitHooks {
				env.PreInitHooks = append(env.PreInitHooks, hooks...)
			} else {
				env.InitHooks = append(env.InitHooks, hooks...)
			}
		default:
			env.Options = append(env.Options, Option{Key: e.key, Value: e.value})
		}
	}

	return env, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// SplitPackages splits an additional_packages value. Packages are separated
// by whitespace; quoted groups are split the same way.
func SplitPackages(value string) ([]string, error) {
	items, err := splitQuoted(value)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, it := range items {
		out = append(out, strings.Fields(it.text)...)
	}
	return out, nil
}

// SplitHooks splits a hook value into commands. Without quotes, each line is
// one command. With quotes, each quoted item is one command and text outside
// the quotes is rejected.
func SplitHooks(value string) ([]string, error) {
	if !strings.Contains(value, `"`) {
		var out []string
		for _, l := range strings.Split(value, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		return out, nil
	}

	items, err := splitQuoted(value)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, it := range items {
		if !it.quoted {
			return nil, fmt.Errorf("unquoted text %q between quoted hooks", it.text)
		}
		if t := strings.TrimSpace(it.text); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

type item struct {
	text   string
	quoted bool
}

// splitQuoted tokenizes value into double-quoted items and bare words.
// Inside quotes, \" and \\ are escapes; any other backslash is literal.
func splitQuoted(value string) ([]item, error) {
	var (
		items   []item
		cur     strings.Builder
		inQuote bool
		inBare  bool
	)

	flushBare := func() {
		if inBare {
			items = append(items, item{text: cur.String()})
			cur.Reset()
			inBare = false
		}
	}

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(value) && (value[i+1] == '"' || value[i+1] == '\\'):
			cur.WriteByte(value[i+1])
			i++
		case c == '"':
			if inQuote {
				items = append(items, item{text: cur.String(), quoted: true})
				cur.Reset()
				inQuote = false
			} else {
				flushBare()
				inQuote = true
			}
		case inQuote:
			cur.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flushBare()
		default:
			inBare = true
			cur.WriteByte(c)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unbalanced quotes in %q", value)
	}
	flushBare()

	return items, nil
}
