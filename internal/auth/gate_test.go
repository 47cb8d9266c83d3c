package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/tasklist/internal/store"
)

func newGate(t *testing.T) (*Gate, *store.Prefs) {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	p := s.Prefs(Namespace)
	return NewGate(p, nil), p
}

func TestLogin_RememberPersistsVerbatim(t *testing.T) {
	g, p := newGate(t)
	ctx := context.Background()

	err := g.Login(ctx, Credentials{Login: "alice", Password: " s3cret ", Remember: true})
	require.NoError(t, err)

	all, err := p.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyLogin:      "alice",
		KeyPassword:   " s3cret ",
		KeyRememberMe: "true",
	}, all)

	c, err := g.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Login: "alice", Password: " s3cret ", Remember: true}, c)
}

func TestLogin_WithoutRememberErases(t *testing.T) {
	g, p := newGate(t)
	ctx := context.Background()

	require.NoError(t, g.Login(ctx, Credentials{Login: "alice", Password: "pw", Remember: true}))
	require.NoError(t, g.Login(ctx, Credentials{Login: "bob", Password: "pw2", Remember: false}))

	all, err := p.All(ctx)
	require.NoError(t, err)
	// Keys are present with empty values, not removed.
	assert.Equal(t, map[string]string{
		KeyLogin:      "",
		KeyPassword:   "",
		KeyRememberMe: "false",
	}, all)
}

func TestLogin_EmptyFieldsDeclined(t *testing.T) {
	cases := []Credentials{
		{Login: "", Password: "pw", Remember: true},
		{Login: "alice", Password: "", Remember: true},
		{Login: "", Password: "", Remember: false},
	}
	for _, c := range cases {
		g, p := newGate(t)
		ctx := context.Background()

		err := g.Login(ctx, c)
		assert.ErrorIs(t, err, ErrEmptyCredentials)

		all, err := p.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all, "declined login must not write")
	}
}

func TestLoad_Defaults(t *testing.T) {
	g, _ := newGate(t)
	c, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, c)
}

type mockPrefs struct{ mock.Mock }

func (m *mockPrefs) String(ctx context.Context, key, fallback string) (string, error) {
	args := m.Called(ctx, key, fallback)
	return args.String(0), args.Error(1)
}

func (m *mockPrefs) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	args := m.Called(ctx, key, fallback)
	return args.Bool(0), args.Error(1)
}

func (m *mockPrefs) Put(ctx context.Context, values map[string]string) error {
	args := m.Called(ctx, values)
	return args.Error(0)
}

var _ Prefs = (*mockPrefs)(nil)

func TestLogin_StorageFailurePropagates(t *testing.T) {
	p := new(mockPrefs)
	boom := errors.New("readonly database")
	p.On("Put", mock.Anything, mock.Anything).Return(boom).Once()

	err := NewGate(p, nil).Login(context.Background(), Credentials{Login: "a", Password: "b"})
	assert.ErrorIs(t, err, boom)
	p.AssertExpectations(t)
}

func TestLoad_StorageFailurePropagates(t *testing.T) {
	p := new(mockPrefs)
	boom := errors.New("io")
	p.On("String", mock.Anything, KeyLogin, "").Return("", boom).Once()

	_, err := NewGate(p, nil).Load(context.Background())
	assert.ErrorIs(t, err, boom)
}
