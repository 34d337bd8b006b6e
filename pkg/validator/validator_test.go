package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,e164_phone"`
	Code  string `json:"code" validate:"required,otp_digits,len=6"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&samplePayload{
		Email: "customer@example.com",
		Phone: "+919876543210",
		Code:  "004213",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&samplePayload{Email: "not-an-email", Phone: "12345", Code: "12ab56"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := make(map[string]string, len(failures))
	for _, failure := range failures {
		fields[failure.Field] = failure.Tag
	}
	require.Equal(t, "email", failures[0].Field)
	require.Contains(t, fields, "phone")
	require.Contains(t, fields, "code")
}

func TestE164PhoneRule(t *testing.T) {
	type onlyPhone struct {
		Phone string `json:"phone" validate:"e164_phone"`
	}

	require.NoError(t, ValidateStruct(&onlyPhone{Phone: "+14155552671"}))
	require.Error(t, ValidateStruct(&onlyPhone{Phone: "04155552671"}))
	require.Error(t, ValidateStruct(&onlyPhone{Phone: "+0415555"}))
}
