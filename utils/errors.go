package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithProblem(statusCode, iris.NewProblem().Title(title).Detail(detail))
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(
		iris.StatusInternalServerError,
		"Internal Server Error",
		"An unexpected error occurred.",
		ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "Resource not found.", ctx)
}

func CreateForbidden(ctx iris.Context, detail string) {
	CreateError(iris.StatusForbidden, "Forbidden", detail, ctx)
}

func CreateConflict(ctx iris.Context, detail string) {
	CreateError(iris.StatusConflict, "Conflict", detail, ctx)
}

func CreateEmailAlreadyRegistered(ctx iris.Context) {
	CreateConflict(ctx, "Email already registered.")
}

// HandleValidationErrors renders validator.v10 failures as a structured 400
// problem; anything else coming out of ReadJSON is treated as a bad payload.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		validationErrors := wrapValidationErrors(errs)

		ctx.StopWithProblem(iris.StatusBadRequest, iris.NewProblem().
			Title("Validation error").
			Detail("One or more fields failed to be validated").
			Key("errors", validationErrors))
		return
	}

	CreateError(iris.StatusBadRequest, "Bad Request", "Malformed request payload.", ctx)
}

// FieldError is a per-field validation failure for query-style inputs that
// never pass through the struct validator (e.g. nearby search parameters).
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func CreateFieldErrors(ctx iris.Context, fields []FieldError) {
	ctx.StopWithProblem(iris.StatusBadRequest, iris.NewProblem().
		Title("Validation error").
		Detail("One or more parameters are invalid").
		Key("errors", fields))
}

type validationError struct {
	ActualTag string      `json:"tag"`
	Namespace string      `json:"namespace"`
	Kind      string      `json:"kind"`
	Type      string      `json:"type"`
	Value     interface{} `json:"value"`
	Param     string      `json:"param"`
}

func wrapValidationErrors(errs validator.ValidationErrors) []validationError {
	validationErrors := make([]validationError, 0, len(errs))
	for _, validationErr := range errs {
		validationErrors = append(validationErrors, validationError{
			ActualTag: validationErr.ActualTag(),
			Namespace: validationErr.Namespace(),
			Kind:      validationErr.Kind().String(),
			Type:      validationErr.Type().String(),
			Value:     validationErr.Value(),
			Param:     validationErr.Param(),
		})
	}

	return validationErrors
}
