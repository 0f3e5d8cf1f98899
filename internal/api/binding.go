package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/agrobench/agrobench/internal/errors"
)

const maxBodySize = 1 << 20

var strictOnce sync.Once

// useStrictBinding makes gin reject unknown JSON fields, which is what turns
// a nested join into a validation error, and names fields by their JSON tag
// in validation failures
func useStrictBinding() {
	strictOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(field reflect.StructField) string {
				name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
				if name == "-" {
					return ""
				}

				return name
			})
		}
	})
}

// bindJSON binds the request body into out with gin's strict JSON binding
func bindJSON(c *gin.Context, out any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	if err := c.ShouldBindJSON(out); err != nil {
		return bindError(err)
	}

	return nil
}

// DecodeRequest applies the HTTP binding rules to a request document read
// from elsewhere, such as a file given to the CLI
func DecodeRequest(data []byte, out any) error {
	useStrictBinding()

	if err := binding.JSON.BindBody(data, out); err != nil {
		return bindError(err)
	}

	return nil
}

func bindError(err error) error {
	var (
		tooLarge *http.MaxBytesError
		invalid  validator.ValidationErrors
	)

	switch {
	case stderrors.Is(err, io.EOF):
		return errors.New(errors.ErrTypeValidation, "request body is empty")
	case stderrors.As(err, &tooLarge):
		return errors.Newf(errors.ErrTypeValidation, "request body exceeds %d bytes", tooLarge.Limit)
	case stderrors.As(err, &invalid):
		fields := make([]string, len(invalid))
		for i, fe := range invalid {
			fields[i] = fe.Field()
		}

		return errors.Newf(errors.ErrTypeValidation, "missing required fields: %s", strings.Join(fields, ", ")).
			WithDetail("fields", fields)
	default:
		return errors.Wrap(err, errors.ErrTypeValidation,
			"invalid request body: "+strings.TrimPrefix(err.Error(), "json: "))
	}
}
