package global

import (
	"github.com/go-playground/validator/v10"
)

// InitValidator khởi tạo validator dùng chung
func InitValidator() *validator.Validate {
	if Validate == nil {
		Validate = validator.New()
	}
	return Validate
}
