package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_NilStore(t *testing.T) {
	_, err := NewLimiter(nil, nil)
	require.Error(t, err)
}

func TestLimiter_Allow(t *testing.T) {
	db := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{
		Attributes: makeWindowItem("QUOTA#chat#x", "WINDOW#2026-02-25", "1"),
	}}
	l, err := NewLimiter(mustNewClient(t, db), map[string]int{"chat": 5, "contact": 0})
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "chat", "x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, db.calls)

	ok, err = l.Allow(context.Background(), "contact", "x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, db.calls, "unlimited scopes never touch the table")

	ok, err = l.Allow(context.Background(), "unknown", "x")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLimiter_Exceeded(t *testing.T) {
	db := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	l, err := NewLimiter(mustNewClient(t, db), map[string]int{"chat": 5})
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "chat", "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLimiter_StoreError(t *testing.T) {
	db := &fakeDynamo{updateErr: errors.New("dynamodb down")}
	l, err := NewLimiter(mustNewClient(t, db), map[string]int{"chat": 5})
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "chat", "x")
	require.Error(t, err)
	require.False(t, ok)
}

func TestNewLimiter_CopiesLimits(t *testing.T) {
	limits := map[string]int{"chat": 5}
	l, err := NewLimiter(mustNewClient(t, &fakeDynamo{}), limits)
	require.NoError(t, err)
	limits["chat"] = 0
	require.Equal(t, 5, l.limits["chat"])
}
