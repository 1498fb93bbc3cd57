package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearClienteRequest struct {
	Documento string  `json:"documento" validate:"required,min=5,max=20"`
	Nombre    string  `json:"nombre"    validate:"required,min=2,max=200"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Telefono  *string `json:"telefono"  validate:"omitempty,min=7,max=20"`
	Direccion *string `json:"direccion"`
}

type ActualizarClienteRequest struct {
	Nombre    string  `json:"nombre"    validate:"omitempty,min=2,max=200"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Telefono  *string `json:"telefono"  validate:"omitempty,min=7,max=20"`
	Direccion *string `json:"direccion"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResponse struct {
	ID        string  `json:"id"`
	Documento string  `json:"documento"`
	Nombre    string  `json:"nombre"`
	Email     *string `json:"email,omitempty"`
	Telefono  *string `json:"telefono,omitempty"`
	Direccion *string `json:"direccion,omitempty"`
	Activo    bool    `json:"activo"`
}
