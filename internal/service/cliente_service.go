package service

import (
	"context"
	"fmt"

	"venpos/internal/apperr"
	"venpos/internal/dto"
	"venpos/internal/model"
	"venpos/internal/repository"

	"github.com/google/uuid"
)

type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Buscar(ctx context.Context, texto string, limit int) ([]dto.ClienteResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
}

type clienteService struct {
	repo repository.ClienteRepository
}

func NewClienteService(repo repository.ClienteRepository) ClienteService {
	return &clienteService{repo: repo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	if _, err := s.repo.FindByDocumento(ctx, req.Documento); err == nil {
		return nil, apperr.Validacion("ya existe un cliente con documento %s", req.Documento)
	}
	c := &model.Cliente{
		Documento: req.Documento,
		Nombre:    req.Nombre,
		Email:     req.Email,
		Telefono:  req.Telefono,
		Direccion: req.Direccion,
		Activo:    true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cliente %s: %w", id, apperr.ErrNoEncontrado)
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Buscar(ctx context.Context, texto string, limit int) ([]dto.ClienteResponse, error) {
	clientes, err := s.repo.Search(ctx, texto, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClienteResponse, 0, len(clientes))
	for i := range clientes {
		out = append(out, *clienteToResponse(&clientes[i]))
	}
	return out, nil
}

func (s *clienteService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cliente %s: %w", id, apperr.ErrNoEncontrado)
	}
	if req.Nombre != "" {
		c.Nombre = req.Nombre
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Telefono != nil {
		c.Telefono = req.Telefono
	}
	if req.Direccion != nil {
		c.Direccion = req.Direccion
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Desactivar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func clienteToResponse(c *model.Cliente) *dto.ClienteResponse {
	return &dto.ClienteResponse{
		ID:        c.ID.String(),
		Documento: c.Documento,
		Nombre:    c.Nombre,
		Email:     c.Email,
		Telefono:  c.Telefono,
		Direccion: c.Direccion,
		Activo:    c.Activo,
	}
}
