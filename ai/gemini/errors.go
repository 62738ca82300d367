package gemini

import (
	"errors"

	"github.com/poiesic/brandmem/ai"
	"google.golang.org/genai"
)

// classify maps a genai client error into the ai error taxonomy.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.ClassifyStatus(service, apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return ai.ClassifyStatus(service, apiErrPtr.Code, apiErrPtr.Message)
	}

	return ai.ClassifyError(service, err)
}

// statusOf is used in logs; 0 means the error carried no HTTP status.
func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
