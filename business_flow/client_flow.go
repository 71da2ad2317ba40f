package businessflow

import (
	"context"
	"strings"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"github.com/imobflow/crm-api/utils"
	"go.uber.org/zap"
)

// ClientFlow manages buyers. CPF and phone are stored unmasked and formatted on the way out.
type ClientFlow interface {
	ListClients(ctx context.Context, req *dto.ListClientsRequest) ([]dto.ClientResponse, error)
	GetClient(ctx context.Context, id string) (*dto.ClientResponse, error)
	CreateClient(ctx context.Context, req *dto.CreateClientRequest) (*dto.ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error)
	DeleteClient(ctx context.Context, id string) error
}

// ClientFlowImpl implements ClientFlow
type ClientFlowImpl struct {
	clientRepo repository.ClientRepository
	logger     *zap.Logger
}

func NewClientFlow(clientRepo repository.ClientRepository, logger *zap.Logger) ClientFlow {
	return &ClientFlowImpl{clientRepo: clientRepo, logger: logger}
}

const cpfDigits = 11

func clientNotFound() error {
	return NewBusinessError(CodeClientNotFound, MsgClientNotFound, ErrClientNotFound)
}

func cpfExists() error {
	return NewBusinessError(CodeClientCPFExists, MsgClientCPFExists, ErrClientCPFExists)
}

func normalizeCPF(raw string) (string, error) {
	cpf := utils.UnmaskValue(raw)
	if len(cpf) != cpfDigits {
		return "", NewBusinessError(CodeInvalidCPF, MsgInvalidCPF, ErrInvalidCPF)
	}
	return cpf, nil
}

func (f *ClientFlowImpl) ListClients(ctx context.Context, req *dto.ListClientsRequest) ([]dto.ClientResponse, error) {
	var filter models.ClientFilter
	if req != nil {
		if search := strings.TrimSpace(req.Search); search != "" {
			filter.Search = &search
		}
	}

	clients, err := f.clientRepo.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.ClientResponse, 0, len(clients))
	for _, c := range clients {
		items = append(items, toClientResponse(c))
	}
	return items, nil
}

func (f *ClientFlowImpl) GetClient(ctx context.Context, id string) (*dto.ClientResponse, error) {
	clientID, ok := parseID(id)
	if !ok {
		return nil, clientNotFound()
	}
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, internalError(err)
	}
	if client == nil {
		return nil, clientNotFound()
	}
	resp := toClientResponse(client)
	return &resp, nil
}

func (f *ClientFlowImpl) CreateClient(ctx context.Context, req *dto.CreateClientRequest) (*dto.ClientResponse, error) {
	cpf, err := normalizeCPF(req.CPF)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	existing, err := f.clientRepo.ByCPF(ctx, cpf)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		return nil, cpfExists()
	}

	client := &models.Client{
		Name:  strings.TrimSpace(req.Name),
		CPF:   cpf,
		Phone: phone,
		Email: req.Email,
	}
	if err := f.clientRepo.Save(ctx, client); err != nil {
		if repository.IsUniqueViolation(err, "uk_clients_cpf") {
			return nil, cpfExists()
		}
		return nil, internalError(err)
	}

	resp := toClientResponse(client)
	return &resp, nil
}

func (f *ClientFlowImpl) UpdateClient(ctx context.Context, id string, req *dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	clientID, ok := parseID(id)
	if !ok {
		return nil, clientNotFound()
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.CPF != nil {
		cpf, err := normalizeCPF(*req.CPF)
		if err != nil {
			return nil, err
		}
		other, err := f.clientRepo.ByCPF(ctx, cpf)
		if err != nil {
			return nil, internalError(err)
		}
		if other != nil && other.ID != clientID {
			return nil, cpfExists()
		}
		fields["cpf"] = cpf
	}
	if req.Phone != nil {
		phone, err := normalizePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		fields["phone"] = phone
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}

	if len(fields) > 0 {
		updated, err := f.clientRepo.UpdateByID(ctx, clientID, fields)
		if err != nil {
			if repository.IsUniqueViolation(err, "uk_clients_cpf") {
				return nil, cpfExists()
			}
			return nil, internalError(err)
		}
		if !updated {
			return nil, clientNotFound()
		}
	}

	return f.GetClient(ctx, id)
}

// DeleteClient refuses to remove a client referenced by sales
func (f *ClientFlowImpl) DeleteClient(ctx context.Context, id string) error {
	clientID, ok := parseID(id)
	if !ok {
		return clientNotFound()
	}

	sales, err := f.clientRepo.CountSales(ctx, clientID)
	if err != nil {
		return internalError(err)
	}
	if sales > 0 {
		return NewBusinessError(CodeClientHasSales, MsgClientHasSales, ErrClientHasSales)
	}

	deleted, err := f.clientRepo.DeleteByID(ctx, clientID)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return NewBusinessError(CodeClientHasSales, MsgClientHasSales, ErrClientHasSales)
		}
		return internalError(err)
	}
	if !deleted {
		return clientNotFound()
	}

	f.logger.Info("client deleted", zap.String("client_id", clientID.String()))
	return nil
}
