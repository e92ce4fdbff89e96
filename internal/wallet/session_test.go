package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type stubConnector struct {
	id     string
	err    error
	signer Signer
	block  chan struct{}
}

func (s *stubConnector) ID() string   { return s.id }
func (s *stubConnector) Name() string { return "Stub " + s.id }

func (s *stubConnector) Connect(ctx context.Context) (Signer, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.signer, s.err
}

type closingSigner struct {
	*KeySigner
	closed chan struct{}
}

func (s *closingSigner) Close() error {
	close(s.closed)
	return nil
}

func newKeySigner(t *testing.T) *KeySigner {
	t.Helper()
	key, err := parsePrivateKey(anvilKey)
	require.NoError(t, err)
	return NewKeySigner(key)
}

func TestProviderConnectDisconnect(t *testing.T) {
	signer := newKeySigner(t)
	p := NewProvider(zap.NewNop(), nil,
		&stubConnector{id: "a", signer: signer},
		&stubConnector{id: "b", signer: signer},
	)

	s := p.Session()
	assert.Equal(t, Disconnected, s.Status)
	assert.Empty(t, s.Account)
	assert.Equal(t, []ConnectorInfo{{ID: "a", Name: "Stub a"}, {ID: "b", Name: "Stub b"}}, s.Connectors)

	require.NoError(t, p.Connect(context.Background(), "b"))
	s = p.Session()
	assert.Equal(t, Connected, s.Status)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Account)

	got, ok := p.Signer()
	require.True(t, ok)
	assert.Equal(t, signer.Address(), got.Address())

	assert.ErrorIs(t, p.Connect(context.Background(), "a"), ErrAlreadyConnected)

	p.Disconnect()
	s = p.Session()
	assert.Equal(t, Disconnected, s.Status)
	assert.Empty(t, s.Account)
	_, ok = p.Signer()
	assert.False(t, ok)
}

func TestProviderConnectErrors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		err     error
		wantErr error
	}{
		{name: "unknown connector", id: "missing", wantErr: ErrUnknownConnector},
		{name: "unavailable", id: "x", err: ErrConnectorUnavailable, wantErr: ErrConnectorUnavailable},
		{name: "rejected", id: "x", err: ErrUserRejected, wantErr: ErrUserRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(nil, nil, &stubConnector{id: "x", err: tt.err})

			err := p.Connect(context.Background(), tt.id)
			require.ErrorIs(t, err, tt.wantErr)

			s := p.Session()
			assert.Equal(t, Disconnected, s.Status)
			assert.Empty(t, s.Account)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), s.Error)
			}
		})
	}
}

func TestProviderDisconnectClearsError(t *testing.T) {
	p := NewProvider(nil, nil, &stubConnector{id: "x", err: ErrUserRejected})
	require.Error(t, p.Connect(context.Background(), "x"))
	require.NotEmpty(t, p.Session().Error)

	p.Disconnect()
	assert.Empty(t, p.Session().Error)
}

func TestProviderConnectingGuardAndAbort(t *testing.T) {
	block := make(chan struct{})
	p := NewProvider(nil, nil, &stubConnector{id: "x", signer: newKeySigner(t), block: block})

	seen := make(chan Session, 8)
	unsubscribe := p.Subscribe(func(s Session) { seen <- s })
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- p.Connect(context.Background(), "x") }()

	first := <-seen
	require.Equal(t, Connecting, first.Status)
	assert.ErrorIs(t, p.Connect(context.Background(), "x"), ErrConnectInProgress)

	p.Disconnect()
	close(block)

	assert.ErrorIs(t, <-done, ErrConnectAborted)
	assert.Equal(t, Disconnected, p.Session().Status)
}

func TestProviderClosesDroppedSigners(t *testing.T) {
	t.Run("aborted connect", func(t *testing.T) {
		block := make(chan struct{})
		signer := &closingSigner{KeySigner: newKeySigner(t), closed: make(chan struct{})}
		p := NewProvider(nil, nil, &stubConnector{id: "x", signer: signer, block: block})

		done := make(chan error, 1)
		go func() { done <- p.Connect(context.Background(), "x") }()
		require.Eventually(t, func() bool { return p.Session().Status == Connecting }, time.Second, time.Millisecond)

		p.Disconnect()
		close(block)

		require.ErrorIs(t, <-done, ErrConnectAborted)
		select {
		case <-signer.closed:
		case <-time.After(time.Second):
			t.Fatal("signer of an aborted connect was not closed")
		}
	})

	t.Run("disconnect", func(t *testing.T) {
		signer := &closingSigner{KeySigner: newKeySigner(t), closed: make(chan struct{})}
		p := NewProvider(nil, nil, &stubConnector{id: "x", signer: signer})
		require.NoError(t, p.Connect(context.Background(), "x"))

		p.Disconnect()
		select {
		case <-signer.closed:
		default:
			t.Fatal("signer was not closed on disconnect")
		}
	})
}

func TestProviderSubscribe(t *testing.T) {
	p := NewProvider(nil, nil, &stubConnector{id: "x", signer: newKeySigner(t)})

	var (
		mu       sync.Mutex
		statuses []Status
	)
	unsubscribe := p.Subscribe(func(s Session) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	})

	require.NoError(t, p.Connect(context.Background(), "x"))
	p.Disconnect()
	unsubscribe()
	require.NoError(t, p.Connect(context.Background(), "x"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{Connecting, Connected, Disconnected}, statuses)
}

func TestStatusMarshalText(t *testing.T) {
	for status, want := range map[Status]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
	} {
		b, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestKeySignerAddress(t *testing.T) {
	s := newKeySigner(t)
	key, err := crypto.HexToECDSA(anvilKey[2:])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())
}
