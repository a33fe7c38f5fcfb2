package httpserver

import (
	"net/http"
	"strconv"

	"agenda/errs"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) RegisterContactRoutes() {
	g := s.Router.Group("/contato")
	g.POST("", s.handleCreateContact)
	g.PUT("/:id", s.handleUpdateContact)
	g.DELETE("/:id", s.handleRemoveContact)
	g.GET("/:id", s.handleGetContact)
	g.GET("/ddd/:ddd", s.handleGetContactsByAreaCode)
}

func (s *Server) handleCreateContact(c echo.Context) error {
	var req CreateContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := s.ContactService.CreateContact(c.Request().Context(), req.Name, req.Phone, req.Email, req.AreaCode)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newContactResponse(created))
}

func (s *Server) handleUpdateContact(c echo.Context) error {
	var req UpdateContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := parseContactID(req.ID)
	if err != nil {
		return err
	}

	updated, err := s.ContactService.UpdateContact(c.Request().Context(), id, req.Name, req.Phone, req.Email, req.AreaCode)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newContactResponse(updated))
}

func (s *Server) handleRemoveContact(c echo.Context) error {
	var req ContactIDRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := parseContactID(req.ID)
	if err != nil {
		return err
	}

	removed, err := s.ContactService.RemoveContact(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RemoveContactResponse{Success: removed})
}

func (s *Server) handleGetContact(c echo.Context) error {
	var req ContactIDRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := parseContactID(req.ID)
	if err != nil {
		return err
	}

	found, err := s.ContactService.GetContactByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newContactResponse(found))
}

func (s *Server) handleGetContactsByAreaCode(c echo.Context) error {
	var req AreaCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	areaCode, err := strconv.Atoi(req.AreaCode)
	if err != nil {
		return errs.Invalid("validation error", errs.Detail{
			PropertyName: "DDD",
			Code:         "number",
			Message:      "DDD must be numeric",
		})
	}

	contacts, err := s.ContactService.GetContactsByAreaCode(c.Request().Context(), areaCode)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newContactListResponse(contacts))
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errs.Invalid("invalid request payload", errs.Detail{
			PropertyName: "body",
			Code:         "malformed",
			Message:      "request body must be a valid JSON object",
		})
	}
	return c.Validate(req)
}

func parseContactID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errs.Invalid("validation error", errs.Detail{
			PropertyName: "Id",
			Code:         "uuid",
			Message:      "Id must be a valid UUID",
		})
	}
	return id, nil
}
