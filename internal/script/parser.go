package script

import (
	"fmt"
	"strings"

	kerrors "github.com/kitodo/kscript/internal/errors"
)

// actionKey is the parameter that names the action.
const actionKey = "action"

// Assignment is one KEY=VALUE token of a metadata action.
type Assignment struct {
	Key   string
	Value string
	// HasValue is false for a bare KEY token (deleteData only).
	HasValue bool
}

// IsRef reports whether the value copies another field (KEY=@REF).
func (a Assignment) IsRef() bool {
	return strings.HasPrefix(a.Value, "@")
}

// Ref returns the referenced field name of a KEY=@REF assignment.
func (a Assignment) Ref() string {
	return strings.TrimPrefix(a.Value, "@")
}

// Command is a parsed script.
type Command struct {
	Action      Action
	Params      map[string]string
	Assignments []Assignment
}

// Param returns the value of a key:value parameter.
func (c *Command) Param(key string) (string, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// Parse turns script text into a Command. All structural problems are
// reported here, before any process is touched.
func Parse(script string) (*Command, error) {
	tokens, err := tokenize(script)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty script", kerrors.ErrParse)
	}

	key, name, ok := strings.Cut(tokens[0], ":")
	if !ok || key != actionKey {
		return nil, fmt.Errorf("%w: script must start with action:<name>, got %q", kerrors.ErrParse, tokens[0])
	}
	spec, ok := lookupAction(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnknownAction, name)
	}

	cmd := &Command{Action: spec.action, Params: make(map[string]string)}
	for _, tok := range tokens[1:] {
		if spec.assignments {
			a, err := parseAssignment(tok, spec.bareKeys)
			if err != nil {
				return nil, err
			}
			cmd.Assignments = append(cmd.Assignments, a)
			continue
		}
		k, v, ok := strings.Cut(tok, ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key:value", kerrors.ErrParse, tok)
		}
		if _, dup := cmd.Params[k]; dup {
			return nil, fmt.Errorf("%w: parameter %q given twice", kerrors.ErrParse, k)
		}
		cmd.Params[k] = v
	}

	if err := spec.validate(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parseAssignment(tok string, bareKeys bool) (Assignment, error) {
	k, v, ok := strings.Cut(tok, "=")
	switch {
	case k == "":
		return Assignment{}, fmt.Errorf("%w: assignment %q has no key", kerrors.ErrParse, tok)
	case !ok && !bareKeys:
		return Assignment{}, fmt.Errorf("%w: %q is not KEY=VALUE", kerrors.ErrParse, tok)
	case ok && v == "@":
		return Assignment{}, fmt.Errorf("%w: reference in %q has no name", kerrors.ErrParse, tok)
	}
	return Assignment{Key: k, Value: v, HasValue: ok}, nil
}

// tokenize splits on whitespace. Double quotes group whitespace into one
// token and are dropped.
func tokenize(script string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range script {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", kerrors.ErrParse)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
