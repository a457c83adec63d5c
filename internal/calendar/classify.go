package calendar

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ErrorClass はプロバイダー呼び出しの失敗の分類。
type ErrorClass string

const (
	ClassNone         ErrorClass = ""
	ClassUnauthorized ErrorClass = "unauthorized"
	ClassForbidden    ErrorClass = "forbidden"
	ClassTimeout      ErrorClass = "timeout"
	ClassUnavailable  ErrorClass = "unavailable"
	ClassOther        ErrorClass = "other"
)

// Classify はゲートウェイが返したエラーを分類する。
// 401応答とinvalid_grantはトークン失効、403は権限不足として扱う。
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return ClassUnauthorized
		case http.StatusForbidden:
			return ClassForbidden
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return ClassUnauthorized
	}
	if strings.Contains(err.Error(), "invalid_grant") {
		return ClassUnauthorized
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ClassUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	}
	return ClassOther
}
