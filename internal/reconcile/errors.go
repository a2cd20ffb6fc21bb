package reconcile

import (
	"fmt"
	"time"

	"github.com/seenimoa/form13f/pkg/utils"
)

// InputError reports that there was nothing to reconcile.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "reconcile input: " + e.Reason
}

// InternalError reports a malformed period group reaching the engine. It is
// fatal for that group only.
type InternalError struct {
	ReportDate time.Time
	Reason     string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("reconcile period %s: %s", utils.FormatDate(e.ReportDate), e.Reason)
}
