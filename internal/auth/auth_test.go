package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Register(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func newService(t *testing.T, client Client) (*Service, *session.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := session.NewStore(session.NewMemoryBackend(), logger)
	require.NoError(t, err)
	return NewService(client, store, logger), store
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": role}).
		SignedString([]byte("0123456789abcdef"))
	require.NoError(t, err)
	return tok
}

func TestService_Login(t *testing.T) {
	adminToken := token(t, "admin")
	userToken := token(t, "user")

	testCases := []struct {
		name       string
		email      string
		setupMock  func(m *MockClient)
		expectRole session.Role
		expectErr  error
	}{
		{
			name:  "Success - admin role from token",
			email: "boss@example.com",
			setupMock: func(m *MockClient) {
				m.On("Login", mock.Anything, "boss@example.com", "secret1").Return(adminToken, nil)
			},
			expectRole: session.RoleAdmin,
		},
		{
			name:  "Success - admin-looking email is still a user",
			email: "admin@example.com",
			setupMock: func(m *MockClient) {
				m.On("Login", mock.Anything, "admin@example.com", "secret1").Return(userToken, nil)
			},
			expectRole: session.RoleUser,
		},
		{
			name:  "Error - rejected credentials",
			email: "user@example.com",
			setupMock: func(m *MockClient) {
				m.On("Login", mock.Anything, "user@example.com", "secret1").
					Return("", carterrors.Remote(carterrors.ErrUnauthorized, 401, "Invalid email or password"))
			},
			expectErr: carterrors.ErrUnauthorized,
		},
		{
			name:      "Error - empty email",
			email:     "  ",
			setupMock: func(*MockClient) {},
			expectErr: carterrors.ErrInvalidArgument,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client := new(MockClient)
			tc.setupMock(client)
			svc, store := newService(t, client)

			// when
			sess, err := svc.Login(context.Background(), tc.email, "secret1")

			// then
			client.AssertExpectations(t)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				_, ok := store.Get()
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectRole, sess.Role)
			assert.Equal(t, tc.email, sess.Identity)
			stored, ok := svc.Current()
			require.True(t, ok)
			assert.Equal(t, sess, stored)
		})
	}
}

func TestService_Register(t *testing.T) {
	testCases := []struct {
		name      string
		email     string
		password  string
		setupMock func(m *MockClient)
		expectErr error
	}{
		{
			name:     "Success",
			email:    "new@example.com",
			password: "secret1",
			setupMock: func(m *MockClient) {
				m.On("Register", mock.Anything, "new@example.com", "secret1").Return(nil)
			},
		},
		{name: "Error - bad email", email: "nope", password: "secret1", setupMock: func(*MockClient) {}, expectErr: carterrors.ErrInvalidArgument},
		{name: "Error - short password", email: "a@b.co", password: "123", setupMock: func(*MockClient) {}, expectErr: carterrors.ErrInvalidArgument},
		{
			name:     "Error - already exists",
			email:    "old@example.com",
			password: "secret1",
			setupMock: func(m *MockClient) {
				m.On("Register", mock.Anything, "old@example.com", "secret1").
					Return(carterrors.Remote(carterrors.ErrConflict, 409, "User already exists"))
			},
			expectErr: carterrors.ErrConflict,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(MockClient)
			tc.setupMock(client)
			svc, _ := newService(t, client)

			err := svc.Register(context.Background(), tc.email, tc.password)

			client.AssertExpectations(t)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}
			_, loggedIn := svc.Current()
			assert.False(t, loggedIn, "register never logs in")
		})
	}
}

func TestService_Logout(t *testing.T) {
	client := new(MockClient)
	client.On("Login", mock.Anything, "a@b.co", "secret1").Return(token(t, "user"), nil)
	svc, _ := newService(t, client)
	_, err := svc.Login(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout())
	require.NoError(t, svc.Logout())

	_, ok := svc.Current()
	assert.False(t, ok)
}
