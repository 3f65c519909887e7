// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validCurrencies contains ISO 4217 currency codes.
var validCurrencies = map[string]bool{
	"AED": true, "AUD": true, "BGN": true, "BRL": true, "CAD": true,
	"CHF": true, "CNY": true, "CZK": true, "DKK": true, "EUR": true,
	"GBP": true, "HKD": true, "HUF": true, "IDR": true, "ILS": true,
	"INR": true, "ISK": true, "JPY": true, "KRW": true, "MXN": true,
	"MYR": true, "NOK": true, "NZD": true, "PHP": true, "PLN": true,
	"RON": true, "SEK": true, "SGD": true, "THB": true, "TRY": true,
	"USD": true, "ZAR": true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("budget_scope", validateBudgetScope)
		_ = v.RegisterValidation("recurrence_interval", validateRecurrenceInterval)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense", "transfer":
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "savings", "current", "credit":
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "weekly", "monthly", "yearly":
		return true
	}
	return false
}

func validateBudgetScope(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "overall", "category", "account":
		return true
	}
	return false
}

func validateRecurrenceInterval(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "none", "daily", "weekly", "biweekly", "monthly", "quarterly", "yearly":
		return true
	}
	return false
}
