package scheduling

import (
	"errors"

	"github.com/hitoshi/bookcal/internal/calendar"
	"github.com/hitoshi/bookcal/internal/model"
)

// classifyGatewayError はゲートウェイのエラーを予約操作のエラーに変換する。
// 既にAPIErrorである場合はそのまま返す。
func classifyGatewayError(err error, upstreamMessage string) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch calendar.Classify(err) {
	case calendar.ClassUnauthorized:
		return model.NewTokenExpiredError()
	case calendar.ClassForbidden:
		return model.NewAccessDeniedError()
	default:
		return model.NewUpstreamError(upstreamMessage)
	}
}

// resultLabel はメトリクス用の結果ラベルを返す。
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeValidation:
			return "invalid"
		case model.ErrCodeSlotConflict:
			return "conflict"
		case model.ErrCodeUnauthenticatedUser, model.ErrCodeTokenExpired, model.ErrCodeAccessDenied:
			return "unauthorized"
		case model.ErrCodeUpstream:
			return "upstream_error"
		}
	}
	return "error"
}
