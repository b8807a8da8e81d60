package youtube

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// QuotaError marks a remote failure caused by the API key's daily quota
// being spent. Callers detect it through the QuotaExceeded method rather
// than this concrete type.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("youtube: quota exceeded: %v", e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

func (e *QuotaError) QuotaExceeded() bool { return true }

var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
	"rateLimitExceeded":  true,
}

// classifyError wraps quota rejections in a *QuotaError and passes every
// other failure through unchanged.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 403 {
			for _, item := range gerr.Errors {
				if quotaReasons[item.Reason] {
					return &QuotaError{Err: err}
				}
			}
			if strings.Contains(strings.ToLower(gerr.Message), "quota") {
				return &QuotaError{Err: err}
			}
		}
		return fmt.Errorf("youtube: %s: %w", op, err)
	}
	return fmt.Errorf("youtube: %s: %w", op, err)
}
