// Package businessflow contains the core business logic and use cases of the CRM
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Domain errors
	ErrLeadNotFound              = errors.New("lead not found")
	ErrLeadWithoutDevelopments   = errors.New("lead has no developments")
	ErrLeadDuplicatedDevelopment = errors.New("lead already linked to development")
	ErrLeadInvalidBroker         = errors.New("lead broker must be a broker or team leader")
	ErrInvalidPhone              = errors.New("phone is invalid")
	ErrInvalidStatus             = errors.New("status is invalid")
	ErrInvalidStatusTransition   = errors.New("status transition not allowed")
	ErrBusinessNotFound          = errors.New("business not found")
	ErrBusinessDuplicated        = errors.New("business already exists for lead and development")
	ErrDevelopmentNotFound       = errors.New("development not found")
	ErrInvalidSessionInterval    = errors.New("session end precedes start")
	ErrClientNotFound            = errors.New("client not found")
	ErrClientCPFExists           = errors.New("client cpf already exists")
	ErrClientHasSales            = errors.New("client has sales")
	ErrInvalidCPF                = errors.New("cpf is invalid")
	ErrUserNotFound              = errors.New("user not found")
	ErrUserEmailExists           = errors.New("email already exists")
	ErrUserHasLeads              = errors.New("user still owns leads")
	ErrTeamNotFound              = errors.New("team not found")
	ErrUserLeadsTeam             = errors.New("user leads a team")
	ErrPasswordTooShort          = errors.New("password too short")
	ErrTeamLeaderInvalidRole     = errors.New("team leader must have teamLeader role")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrAccountInactive           = errors.New("account is inactive")
)

// Error codes surfaced in the API error envelope
const (
	CodeInternal                = "INTERNAL_ERROR"
	CodeValidation              = "VALIDATION_ERROR"
	CodeLeadNotFound            = "LEAD_NOT_FOUND"
	CodeLeadWithoutDevelopments = "LEAD_DONT_HAS_DEVELOPMENTS"
	CodeLeadDuplicated          = "LEAD_DUPLICATED_AND_HAS_THIS_DEVELOPMENT"
	CodeLeadInvalidBroker       = "LEAD_INVALID_BROKER"
	CodeInvalidPhone            = "INVALID_PHONE"
	CodeInvalidStatus           = "INVALID_STATUS"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeBusinessNotFound        = "BUSINESS_NOT_FOUND"
	CodeBusinessDuplicated      = "BUSINESS_DUPLICATED"
	CodeDevelopmentNotFound     = "DEVELOPMENT_NOT_FOUND"
	CodeInvalidSessionInterval  = "INVALID_SESSION_INTERVAL"
	CodeClientNotFound          = "CLIENT_NOT_FOUND"
	CodeClientCPFExists         = "CLIENT_CPF_EXISTS"
	CodeClientHasSales          = "CLIENT_HAS_SALES"
	CodeInvalidCPF              = "INVALID_CPF"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeUserEmailExists         = "USER_EMAIL_EXISTS"
	CodeUserHasLeads            = "USER_HAS_LEADS"
	CodeTeamNotFound            = "TEAM_NOT_FOUND"
	CodeInvalidTeam             = "INVALID_TEAM"
	CodeUserLeadsTeam           = "USER_LEADS_TEAM"
	CodeTeamLeaderInvalidRole   = "TEAM_LEADER_INVALID_ROLE"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeAccountInactive         = "ACCOUNT_INACTIVE"
)

// Messages shown to users
const (
	MsgInternal                = "Erro interno do servidor"
	MsgLeadNotFound            = "Lead não encontrado"
	MsgLeadWithoutDevelopments = "Selecione ao menos um empreendimento"
	MsgLeadDuplicated          = "Lead já cadastrado com este empreendimento"
	MsgLeadInvalidBroker       = "Lead deve ser atribuído a um corretor ou líder de equipe"
	MsgInvalidPhone            = "Telefone inválido"
	MsgInvalidStatus           = "Status inválido"
	MsgInvalidSource           = "Origem inválida"
	MsgInvalidBrokerFilter     = "Corretor inválido"
	MsgInvalidStatusTransition = "Transição de status não permitida"
	MsgBusinessNotFound        = "Negócio não encontrado"
	MsgBusinessDuplicated      = "Já existe um negócio deste lead para este empreendimento"
	MsgBusinessInvalidBroker   = "Negócio deve ser atribuído a um corretor ou líder de equipe"
	MsgDevelopmentNotFound     = "Empreendimento não encontrado"
	MsgInvalidSessionInterval  = "O fim da sessão deve ser posterior ao início"
	MsgClientNotFound          = "Cliente não encontrado"
	MsgClientCPFExists         = "CPF já cadastrado"
	MsgClientHasSales          = "Cliente possui vendas e não pode ser excluído"
	MsgInvalidCPF              = "CPF deve conter 11 dígitos"
	MsgUserNotFound            = "Usuário não encontrado"
	MsgUserEmailExists         = "E-mail já cadastrado"
	MsgUserHasLeads            = "Usuário possui leads atribuídos"
	MsgTeamNotFound            = "Equipe não encontrada"
	MsgUserLeadsTeam           = "Usuário é líder de uma equipe"
	MsgPasswordTooShort        = "Senha deve ter ao menos %d caracteres"
	MsgPasswordTooLong         = "Senha muito longa"
	MsgInvalidRole             = "Perfil inválido"
	MsgTeamLeaderInvalidRole   = "O líder da equipe deve ter o perfil de líder de equipe"
	MsgInvalidCredentials      = "E-mail ou senha inválidos"
	MsgAccountInactive         = "Usuário inativo"
	MsgLeadDeleted             = "Lead deletado com sucesso"
	MsgBusinessDeleted         = "Negócio deletado com sucesso"
	MsgUserDeleted             = "Usuário deletado com sucesso"
	MsgTeamDeleted             = "Equipe deletada com sucesso"
	MsgClientDeleted           = "Cliente deletado com sucesso"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// internalError hides the cause behind the generic message; the cause is kept for logging
func internalError(err error) *BusinessError {
	return NewBusinessError(CodeInternal, MsgInternal, err)
}

// AsBusinessError extracts the BusinessError carried by err, if any
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsBusinessNotFound(err error) bool {
	return errors.Is(err, ErrBusinessNotFound)
}

func IsClientNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsTeamNotFound(err error) bool {
	return errors.Is(err, ErrTeamNotFound)
}

func IsLeadDuplicatedDevelopment(err error) bool {
	return errors.Is(err, ErrLeadDuplicatedDevelopment)
}

func IsLeadInvalidBroker(err error) bool {
	return errors.Is(err, ErrLeadInvalidBroker)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}
