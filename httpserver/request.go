package httpserver

// CreateContactRequest is the body of POST /contato.
type CreateContactRequest struct {
	Name     string `json:"Nome" validate:"required,notblank,min=2,max=100"`
	Phone    string `json:"Telefone" validate:"required,phone"`
	Email    string `json:"Email" validate:"required,email,max=255"`
	AreaCode int    `json:"DDD" validate:"required,min=11,max=99"`
}

// UpdateContactRequest is the body of PUT /contato/:id. The id comes from the
// path and is never read from the body.
type UpdateContactRequest struct {
	ID       string `param:"id" json:"-" label:"Id" validate:"required,uuid"`
	Name     string `json:"Nome" validate:"required,notblank,min=2,max=100"`
	Phone    string `json:"Telefone" validate:"required,phone"`
	Email    string `json:"Email" validate:"required,email,max=255"`
	AreaCode int    `json:"DDD" validate:"required,min=11,max=99"`
}

type ContactIDRequest struct {
	ID string `param:"id" label:"Id" validate:"required,uuid"`
}

type AreaCodeRequest struct {
	AreaCode string `param:"ddd" label:"DDD" validate:"required,number"`
}
