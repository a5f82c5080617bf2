package clips

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/cases"
)

// Filter returns the clips whose name or any tag contains query,
// case-insensitively. An empty query matches every clip. Order is kept.
func Filter(list []Clip, query string) []Clip {
	folder := cases.Fold()
	q := folder.String(query)

	out := make([]Clip, 0, len(list))
	for _, c := range list {
		if matches(folder, c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(folder cases.Caser, c Clip, q string) bool {
	if strings.Contains(folder.String(c.Name), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(folder.String(tag), q) {
			return true
		}
	}
	return false
}

// queryEnv is the variable set exposed to Query expressions. End is -1 for
// open-ended clips.
type queryEnv struct {
	ID        string   `expr:"id"`
	Name      string   `expr:"name"`
	Start     float64  `expr:"start"`
	End       float64  `expr:"end"`
	Duration  float64  `expr:"duration"`
	Tags      []string `expr:"tags"`
	IsDefault bool     `expr:"isDefault"`
}

func envFor(c Clip) queryEnv {
	end := -1.0
	if c.End != nil {
		end = *c.End
	}
	return queryEnv{
		ID:        c.ID,
		Name:      c.Name,
		Start:     c.Start,
		End:       end,
		Duration:  c.Duration(),
		Tags:      c.Tags,
		IsDefault: c.IsDefault,
	}
}

// CompileQuery compiles a boolean clip expression such as
// `start >= 10 && "soccer" in tags`.
func CompileQuery(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.Env(queryEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid clip query: %w", err)
	}
	return program, nil
}

// Query keeps the clips for which expression evaluates to true.
func Query(list []Clip, expression string) ([]Clip, error) {
	if strings.TrimSpace(expression) == "" {
		return append([]Clip{}, list...), nil
	}
	program, err := CompileQuery(expression)
	if err != nil {
		return nil, err
	}

	out := make([]Clip, 0, len(list))
	for _, c := range list {
		res, err := expr.Run(program, envFor(c))
		if err != nil {
			return nil, fmt.Errorf("evaluate clip query on %s: %w", c.ID, err)
		}
		if ok, _ := res.(bool); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ParseTags splits a comma separated tag list, trimming blanks and dropping
// empty entries. Duplicates are kept.
func ParseTags(input string) []string {
	return NormalizeTags(strings.Split(input, ","))
}

// NormalizeTags trims every tag and drops the empty ones, keeping order and
// duplicates. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FormatTime renders seconds as MM:SS. Nil renders as 00:00.
func FormatTime(seconds *float64) string {
	if seconds == nil || *seconds < 0 {
		return "00:00"
	}
	total := int(*seconds)
	return fmt.Sprintf("%02d:%02d", (total/60)%60, total%60)
}
