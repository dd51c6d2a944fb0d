package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// CNIC in the dashed national format, e.g. 35202-1234567-1
	CNICPattern = `^\d{5}-\d{7}-\d$`

	// Phone numbers: optional leading +, 10 to 15 digits, dashes and spaces allowed
	PhonePattern = `^\+?[0-9][0-9\- ]{8,18}[0-9]$`

	// Program codes are upper-case letters, e.g. BSCS
	ProgramCodePattern = `^[A-Z]{2,12}$`
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	CNIC        *regexp.Regexp
	Phone       *regexp.Regexp
	ProgramCode *regexp.Regexp
}{
	CNIC:        regexp.MustCompile(CNICPattern),
	Phone:       regexp.MustCompile(PhonePattern),
	ProgramCode: regexp.MustCompile(ProgramCodePattern),
}

// custom validation tags & texts
const (
	cnicTag     = "cnic"
	cnicText    = "{0} must be in the format 12345-1234567-1"
	phoneTag    = "phone"
	phoneText   = "{0} must be a valid phone number"
	programTag  = "program_code"
	programText = "{0} must be an upper-case program code such as BSCS"
)

func cnicValidation(fl validator.FieldLevel) bool {
	return CompiledPatterns.CNIC.MatchString(strings.TrimSpace(fl.Field().String()))
}

func phoneValidation(fl validator.FieldLevel) bool {
	return CompiledPatterns.Phone.MatchString(strings.TrimSpace(fl.Field().String()))
}

func programCodeValidation(fl validator.FieldLevel) bool {
	return CompiledPatterns.ProgramCode.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
}
