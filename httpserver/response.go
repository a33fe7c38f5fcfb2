package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"agenda/contact"
	"agenda/errs"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	successMessage       = "OK"
	defaultErrorCode     = "100500"
	internalErrorMessage = "Internal server error"
)

// APIResponse is the envelope used by operational endpoints.
type APIResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

type ContactResponse struct {
	ID       uuid.UUID `json:"Id"`
	Name     string    `json:"Nome"`
	Phone    string    `json:"Telefone"`
	Email    string    `json:"Email"`
	AreaCode int       `json:"DDD"`
}

type ContactListResponse struct {
	Contacts []ContactResponse `json:"Contatos"`
}

type RemoveContactResponse struct {
	Success bool `json:"Sucesso"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string        `json:"Code"`
	Message string        `json:"Message"`
	Details []ErrorDetail `json:"Details"`
}

type ErrorDetail struct {
	PropertyName string `json:"PropertyName"`
	Code         string `json:"Code"`
	Message      string `json:"Message"`
}

func newContactResponse(c contact.Contact) ContactResponse {
	return ContactResponse{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		AreaCode: c.AreaCode,
	}
}

func newContactListResponse(contacts []contact.Contact) ContactListResponse {
	resp := ContactListResponse{Contacts: make([]ContactResponse, len(contacts))}
	for i, c := range contacts {
		resp.Contacts[i] = newContactResponse(c)
	}
	return resp
}

func writeSuccess(c echo.Context, status int, result interface{}) error {
	return c.JSON(status, APIResponse{
		Code:    strconv.Itoa(status),
		Message: successMessage,
		Result:  result,
	})
}

// newErrorResponse picks the status and body for err. Application errors are
// always reported as 400 with their details; anything unknown is a 500.
func newErrorResponse(err error) (int, ErrorResponse) {
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		return http.StatusBadRequest, ErrorResponse{
			Code:    errorCode(err, http.StatusBadRequest),
			Message: errs.ErrorMessage(err),
			Details: toErrorDetails(errs.ErrorDetails(err)),
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message, ok := he.Message.(string)
		if !ok {
			message = fmt.Sprint(he.Message)
		}
		return he.Code, ErrorResponse{
			Code:    errorCode(err, he.Code),
			Message: message,
			Details: []ErrorDetail{},
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Code:    defaultErrorCode,
		Message: internalErrorMessage,
		Details: []ErrorDetail{},
	}
}

func toErrorDetails(details []errs.Detail) []ErrorDetail {
	out := make([]ErrorDetail, len(details))
	for i, d := range details {
		out[i] = ErrorDetail{
			PropertyName: d.PropertyName,
			Code:         d.Code,
			Message:      d.Message,
		}
	}
	return out
}

func errorCode(err error, status int) string {
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case errs.EINVALID:
			return "100010"
		case errs.ENOTFOUND:
			return "100404"
		case errs.ECONFLICT:
			return "100409"
		case errs.EBUSINESS:
			return "100422"
		case errs.ECONCURRENCY:
			return "100412"
		case errs.EINTERNAL:
			return defaultErrorCode
		}
	}

	if status != 0 {
		return fmt.Sprintf("100%03d", status)
	}
	return defaultErrorCode
}
