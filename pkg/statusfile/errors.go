package statusfile

import (
	"strconv"

	"github.com/azure/patchcore/pkg/constants"
)

// errorList implements the bounded/deduped/truncated error policy (spec
// §4.3 "Error list policy"): at most StatusErrorLimit entries, each message
// truncated to StatusErrorMsgSizeLimit characters, with same-code-and-message
// duplicates collapsed to their most recent occurrence.
type errorList struct {
	entries []ErrorDetail
}

func newErrorList() *errorList {
	return &errorList{}
}

// add records code/message, moving an existing identical entry to the most
// recent position instead of duplicating it, then enforces the size cap by
// dropping the oldest entry.
func (l *errorList) add(code, message string) {
	if len(message) > constants.StatusErrorMsgSizeLimit {
		message = message[:constants.StatusErrorMsgSizeLimit]
	}

	for i, e := range l.entries {
		if e.Code == code && e.Message == message {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}

	l.entries = append(l.entries, ErrorDetail{Code: code, Message: message})
	if len(l.entries) > constants.StatusErrorLimit {
		l.entries = l.entries[len(l.entries)-constants.StatusErrorLimit:]
	}
}

// summary renders the accumulated entries as the substatus Errors payload,
// classifying severity from whether any entry is present.
func (l *errorList) summary() Errors {
	if len(l.entries) == 0 {
		return Errors{Code: errorSeveritySuccess, Details: []ErrorDetail{}, Message: "0 error/s reported."}
	}
	details := make([]ErrorDetail, len(l.entries))
	copy(details, l.entries)
	return Errors{
		Code:    errorSeverityError,
		Details: details,
		Message: formatErrorCountMessage(len(l.entries)),
	}
}

func formatErrorCountMessage(n int) string {
	if n == 1 {
		return "1 error reported."
	}
	return pluralErrorMessage(n)
}

func pluralErrorMessage(n int) string {
	return strconv.Itoa(n) + " errors reported."
}
