package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiveboard/internal/domain"
	"hiveboard/internal/service"
)

func TestResolveActor_UserIDTakesPrecedence(t *testing.T) {
	actor, err := service.ResolveActor("u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActorUser, actor.Kind)
	assert.Equal(t, "u1", actor.ID)
}

func TestResolveActor_GuestFallback(t *testing.T) {
	actor, err := service.ResolveActor("", "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.ActorGuest, actor.Kind)
	assert.Equal(t, "g1", actor.ID)
}

func TestResolveActor_NoIdentity(t *testing.T) {
	_, err := service.ResolveActor("", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidIdentity))
}
