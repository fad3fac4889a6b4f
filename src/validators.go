package main

import (
	"aworld/src/types"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var paymentCurrencyValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.IsPaymentCurrency(fl.Field().String())
}

var orderCurrencyValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.IsOrderCurrency(fl.Field().String())
}

var orderStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.OrderStatus(fl.Field().String()).Valid()
}

var invoiceStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.InvoiceStatus(fl.Field().String()).Valid()
}

var paymentMethodValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return types.PaymentMethod(fl.Field().String()).Valid()
}

// decimalTypeFunc lets numeric rules such as gte compare decimal amounts.
func decimalTypeFunc(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// fieldName reports json, form or uri names so errors match the request.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
		v.RegisterCustomTypeFunc(decimalTypeFunc, decimal.Decimal{})
		v.RegisterValidation("paymentcurrency", paymentCurrencyValidatorFunc)
		v.RegisterValidation("ordercurrency", orderCurrencyValidatorFunc)
		v.RegisterValidation("orderstatus", orderStatusValidatorFunc)
		v.RegisterValidation("invoicestatus", invoiceStatusValidatorFunc)
		v.RegisterValidation("paymentmethod", paymentMethodValidatorFunc)
	}
}
