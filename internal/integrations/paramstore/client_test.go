package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	values     map[string]string
	batchErr   error
	batchCalls [][]string
}

func (f *fakeAPI) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.batchCalls = append(f.batchCalls, in.Names)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := &ssm.GetParametersOutput{}
	for _, n := range in.Names {
		v, ok := f.values[n]
		if !ok {
			out.InvalidParameters = append(out.InvalidParameters, n)
			continue
		}
		out.Parameters = append(out.Parameters, types.Parameter{Name: strPtr(n), Value: strPtr(v)})
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func TestGetParameters_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameters(context.Background(), []string{"p"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameters_NoNames(t *testing.T) {
	api := &fakeAPI{}
	client, err := New(api)
	require.NoError(t, err)
	got, err := client.GetParameters(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Empty(t, api.batchCalls)
}

func TestGetParameters_DecryptsValues(t *testing.T) {
	api := &recordingAPI{}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameters(context.Background(), []string{"/p"})
	require.NoError(t, err)
	require.NotNil(t, api.last.WithDecryption)
	require.True(t, *api.last.WithDecryption)
}

type recordingAPI struct {
	last *ssm.GetParametersInput
}

func (r *recordingAPI) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	r.last = in
	return nil, nil
}

func TestGetParameters_ReturnsKnownNames(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/site/a": "1", "/site/b": "2"}}
	client, err := New(api)
	require.NoError(t, err)

	got, err := client.GetParameters(context.Background(), []string{"/site/a", " ", "/site/b", "/site/missing"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"/site/a": "1", "/site/b": "2"}, got)
	require.Len(t, api.batchCalls, 1)
	require.Equal(t, []string{"/site/a", "/site/b", "/site/missing"}, api.batchCalls[0])
}

func TestGetParameters_Batches(t *testing.T) {
	api := &fakeAPI{values: map[string]string{}}
	names := make([]string, 0, 23)
	for i := 0; i < 23; i++ {
		n := fmt.Sprintf("/p/%d", i)
		names = append(names, n)
		api.values[n] = n
	}
	client, err := New(api)
	require.NoError(t, err)

	got, err := client.GetParameters(context.Background(), names)
	require.NoError(t, err)
	require.Len(t, got, 23)
	require.Len(t, api.batchCalls, 3)
	require.Len(t, api.batchCalls[2], 3)
}

func TestGetParameters_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{batchErr: errors.New("throttled")})
	require.NoError(t, err)
	_, err = client.GetParameters(context.Background(), []string{"/p"})
	require.ErrorContains(t, err, "throttled")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}
