package openai

import (
	"regexp"
	"strconv"

	"github.com/poiesic/brandmem/ai"
)

// langchaingo reports HTTP failures as "API returned unexpected status code: N".
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// classify maps a langchaingo error into the ai error taxonomy.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if status, convErr := strconv.Atoi(m[1]); convErr == nil {
			return ai.ClassifyStatus(service, status, err.Error())
		}
	}
	return ai.ClassifyError(service, err)
}
