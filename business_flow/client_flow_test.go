package businessflow

import (
	"context"
	"testing"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientFlow(t *testing.T) {
	store := newMemoryStore()
	flow := NewClientFlow(&memoryClientRepo{s: store}, zap.NewNop())
	ctx := context.Background()

	created, err := flow.CreateClient(ctx, &dto.CreateClientRequest{
		Name:  "Helena Dias",
		CPF:   "123.456.789-01",
		Phone: "(11) 98888-7777",
	})
	require.NoError(t, err)
	assert.Equal(t, "123.456.789-01", created.CPF)
	assert.Equal(t, "(11) 98888-7777", created.Phone)
	stored := store.clients[parseMust(t, created.ID)]
	assert.Equal(t, "12345678901", stored.CPF)
	assert.Equal(t, "11988887777", stored.Phone)

	_, err = flow.CreateClient(ctx, &dto.CreateClientRequest{Name: "Copia", CPF: "12345678901", Phone: "11900000000"})
	requireCode(t, err, CodeClientCPFExists)

	_, err = flow.CreateClient(ctx, &dto.CreateClientRequest{Name: "Curto", CPF: "123.456", Phone: "11900000000"})
	requireCode(t, err, CodeInvalidCPF)

	found, err := flow.ListClients(ctx, &dto.ListClientsRequest{Search: "456.789"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	updated, err := flow.UpdateClient(ctx, created.ID, &dto.UpdateClientRequest{
		Phone: utils.ToPtr("1140041234"),
		Email: utils.ToPtr("helena@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "(11) 4004-1234", updated.Phone)
	require.NotNil(t, updated.Email)

	store.sales[stored.ID] = 2
	requireCode(t, flow.DeleteClient(ctx, created.ID), CodeClientHasSales)

	store.sales[stored.ID] = 0
	require.NoError(t, flow.DeleteClient(ctx, created.ID))

	_, err = flow.GetClient(ctx, created.ID)
	requireCode(t, err, CodeClientNotFound)
	assert.True(t, IsClientNotFound(err))
}
