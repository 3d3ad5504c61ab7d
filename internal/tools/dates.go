package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is the calendar date format of evaluations.
const DateLayout = "2006-01-02"

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDate accepts YYYY-MM-DD or an English expression such as "today" or
// "last friday", resolved against now. Empty input means today.
func parseDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return now.Format(DateLayout), nil
	}
	if t, err := time.Parse(DateLayout, input); err == nil {
		return t.Format(DateLayout), nil
	}
	r, err := dateParser.Parse(input, now)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognised date %q, use YYYY-MM-DD", input)
	}
	return r.Time.Format(DateLayout), nil
}
