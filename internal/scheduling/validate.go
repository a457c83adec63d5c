package scheduling

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/bookcal/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	minPhoneDigits = 10
	maxPhoneDigits = 15
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// fieldReasons はタグごとの利用者向けメッセージ。
var fieldReasons = map[string]string{
	"nonblank":  "Name is required",
	"plaintext": "Name must not contain markup",
	"phone":     "Phone number must be 10 to 15 digits",
	"isodate":   "Invalid date format",
	"clock":     "Invalid time format",
}

// newValidator は予約リクエスト用のカスタムタグを登録したValidatorを生成する。
// エラーのフィールド名にはJSONのキー名を使う。
func newValidator(text PlainTextChecker) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// 登録に失敗するのはタグ名が空の場合のみ
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("plaintext", func(fl validator.FieldLevel) bool {
		return text.IsPlainText(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return isPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})

	return v
}

func isPhone(s string) bool {
	if len(s) < minPhoneDigits || len(s) > maxPhoneDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validateRequest はリクエストを検証し、最初に失敗したフィールドを
// ValidationErrorとして返す。フィールドの検査順はname, phone, date, time。
func (e *Engine) validateRequest(req model.AppointmentRequest) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("", "Invalid request")
	}

	first := verrs[0]
	reason, ok := fieldReasons[first.Tag()]
	if !ok {
		reason = "Invalid value"
	}
	return model.NewValidationError(first.Field(), reason)
}

// slotStart はリクエストの日付と時刻を指定タイムゾーンの時刻として解釈する。
// 検証済みのリクエストに対してのみ呼び出す。
func slotStart(req model.AppointmentRequest, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, req.Date+" "+req.Time, loc)
}
