package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"TalkTime/tools/errs"
	"TalkTime/tools/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFlags struct{ mock.Mock }

func (m *mockFlags) Set(ctx context.Context, token, flag string, ttl time.Duration) error {
	return m.Called(token, flag, ttl).Error(0)
}

func (m *mockFlags) Get(ctx context.Context, token string) (string, bool, error) {
	args := m.Called(token)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockFlags) Del(ctx context.Context, token string) error {
	return m.Called(token).Error(0)
}

func newSvc() (*Service, *MemFlags) {
	f := NewMemFlags()
	return NewService(security.DefaultOptions([]byte("unit-test")), f, "TT-Token"), f
}

func TestMintValidateRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSvc()

	tok, err := svc.Mint(ctx, 42, "PC", true, map[string]any{"name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "TT-Token", tok.Name)
	assert.Equal(t, "TT-Token", svc.TokenName())

	uid, err := svc.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)

	flag, ok, err := svc.LookupPendingAuthFlag(ctx, tok.Value)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", flag)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Validate(context.Background(), "not-a-jwt")
	assert.True(t, errors.Is(err, errs.ErrTokenInvalid))
	assert.Equal(t, errs.TokenInvalid, errs.Code(err))
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	other := NewService(security.DefaultOptions([]byte("other")), NewMemFlags(), "")
	tok, err := other.Mint(context.Background(), 1, "PC", false, nil)
	require.NoError(t, err)

	svc, _ := newSvc()
	_, err = svc.Validate(context.Background(), tok.Value)
	assert.True(t, errors.Is(err, errs.ErrTokenInvalid))
}

func TestRevokeClearsFlag(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSvc()
	tok, err := svc.Mint(ctx, 9, "PC", true, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, tok.Value))
	_, ok, err := svc.LookupPendingAuthFlag(ctx, tok.Value)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMintFailsWithoutSecret(t *testing.T) {
	svc := NewService(security.Options{}, NewMemFlags(), "")
	_, err := svc.Mint(context.Background(), 1, "PC", false, nil)
	assert.Error(t, err)
	assert.Equal(t, "Authorization", svc.TokenName())
}

func TestMemFlagsExpire(t *testing.T) {
	ctx := context.Background()
	f := NewMemFlags()
	now := time.Unix(1000, 0)
	f.now = func() time.Time { return now }

	require.NoError(t, f.Set(ctx, "t", "1", time.Minute))
	_, ok, _ := f.Get(ctx, "t")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = f.Get(ctx, "t")
	assert.False(t, ok)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "token:login:token:abc", flagKey("abc"))
}

func TestMintFailsWhenFlagStoreDown(t *testing.T) {
	f := &mockFlags{}
	f.On("Set", mock.Anything, "5", mock.AnythingOfType("time.Duration")).Return(errors.New("redis: connection refused")).Once()
	svc := NewService(security.DefaultOptions([]byte("unit-test")), f, "")

	_, err := svc.Mint(context.Background(), 5, "PC", true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save token flag")
	f.AssertExpectations(t)
}

func TestLookupPropagatesStoreError(t *testing.T) {
	f := &mockFlags{}
	f.On("Get", "tok").Return("", false, errors.New("redis: timeout")).Once()
	svc := NewService(security.DefaultOptions([]byte("unit-test")), f, "")

	_, ok, err := svc.LookupPendingAuthFlag(context.Background(), "tok")
	assert.Error(t, err)
	assert.False(t, ok)
	f.AssertExpectations(t)
}
