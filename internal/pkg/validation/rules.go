package validation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom binding tags
const (
	TagRFC3339  = "rfc3339"
	TagNotBlank = "notblank"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterRules adds the custom tags to gin's validator. Safe to call more than once.
func RegisterRules() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = Register(v)
	})
	return registerErr
}

// Register adds the custom tags to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagRFC3339, isRFC3339); err != nil {
		return fmt.Errorf("failed to register %s: %w", TagRFC3339, err)
	}
	if err := v.RegisterValidation(TagNotBlank, isNotBlank); err != nil {
		return fmt.Errorf("failed to register %s: %w", TagNotBlank, err)
	}
	return nil
}

func isRFC3339(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
