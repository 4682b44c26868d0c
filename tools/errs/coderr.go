package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// Error codes, one per failure class. The HTTP layer maps them onto
// status codes; everything below the API boundary speaks CodeError.
const (
	CodeValidation    = 1001
	CodeNotFound      = 1002
	CodeAuthorization = 1003
	CodeConflict      = 1004
	CodeDependency    = 1005
)

var (
	ErrValidation    = NewCodeError(CodeValidation, "invalid argument")
	ErrNotFound      = NewCodeError(CodeNotFound, "record not found")
	ErrAuthorization = NewCodeError(CodeAuthorization, "not a participant")
	ErrConflict      = NewCodeError(CodeConflict, "duplicate record")
	ErrDependency    = NewCodeError(CodeDependency, "dependency unavailable")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy carrying extra caller context. The original
// sentinel stays untouched so errors.Is keeps matching by code.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// WrapMsg attaches detail and a stack in one step.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	return pkgerr.WithStack(e.WithDetail(toString(msg, kv)))
}

func (e *CodeError) Is(err error) bool {
	var target *CodeError
	if !errors.As(err, &target) {
		return false
	}
	return e.Code == target.Code
}

// Code extracts the CodeError code from anywhere in the chain; 0 if none.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// Wrap adds a stack trace without changing the error identity.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithStack(err)
}

// WrapMsg annotates err with a message plus key/value context.
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		sb.WriteString(" ")
		sb.WriteString(toStr(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(toStr(kv[i+1]))
		}
	}
	return sb.String()
}

func toStr(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case error:
		return s.Error()
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
