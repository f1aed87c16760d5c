package llmservice

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campus-assistant/internal/models"
)

var quotaMarkers = []string{"429", "resource_exhausted", "insufficient_quota", "rate limit", "rate_limit", "quota"}

// Classify wraps err with models.ErrModelQuota when the provider reported a
// rate limit or exhausted quota, and with models.ErrModelCall otherwise.
// Already classified errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrModelQuota) || errors.Is(err, models.ErrModelCall) {
		return err
	}
	if IsQuotaError(err) {
		return fmt.Errorf("%w: %w", models.ErrModelQuota, err)
	}
	return fmt.Errorf("%w: %w", models.ErrModelCall, err)
}

// IsQuotaError reports whether err signals a rate limit or exhausted quota.
func IsQuotaError(err error) bool {
	var apiErr *openaisdk.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openaisdk.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	var aErr *anthropic.Error
	if errors.As(err, &aErr) && aErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
