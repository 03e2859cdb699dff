package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// decimal.Decimal se valida como número; sin esto las etiquetas min/gt fallan con "Bad field type".
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Los errores usan el nombre JSON (o query) del campo.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError convierte los errores del validador en un ErrorResponse con detalle por campo.
func validationError(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:]] = validationMessage(fe)
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo requerido"
	case "email":
		return "email inválido"
	case "min":
		if fe.Kind() == reflect.String {
			return "mínimo " + fe.Param() + " caracteres"
		}
		if fe.Kind() == reflect.Slice {
			return "mínimo " + fe.Param() + " elementos"
		}
		return "debe ser al menos " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "máximo " + fe.Param() + " caracteres"
		}
		return "debe ser como máximo " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "datetime":
		return "formato de fecha esperado " + fe.Param()
	default:
		return "valor inválido"
	}
}

// parseBody decodifica el JSON del cuerpo y valida las etiquetas. Si devuelve false la
// respuesta de error ya fue escrita y el handler debe retornar err.
func parseBody(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := validate.Struct(dst); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

// parsePage lee limit/offset de la query.
func parsePage(c *fiber.Ctx) dto.PageRequest {
	return dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
}

// checkQuery valida un DTO de filtros ya poblado desde la query.
func checkQuery(c *fiber.Ctx, q interface{}) (bool, error) {
	if err := validate.Struct(q); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}
