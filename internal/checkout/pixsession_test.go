package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/pix"
)

func TestPixSessionExpires(t *testing.T) {
	sessions := NewPixSessions(20 * time.Millisecond)
	t.Cleanup(sessions.Close)

	type expiry struct {
		clientID string
		session  PixSession
	}
	fired := make(chan expiry, 1)
	sessions.Start("c1", pix.Payload{TxID: "LB1"}, func(clientID string, s PixSession) {
		fired <- expiry{clientID: clientID, session: s}
	})

	select {
	case e := <-fired:
		s := e.session
		require.Equal(t, "c1", e.clientID)
		require.True(t, s.Expired)
		require.Equal(t, "LB1", s.Payload.TxID)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not fire")
	}
	got, ok := sessions.Get("c1")
	require.True(t, ok)
	require.True(t, got.Expired)
	require.Zero(t, got.Remaining(time.Now()))

	require.Eventually(t, func() bool { return sessions.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPixSessionDiscardStopsCountdown(t *testing.T) {
	sessions := NewPixSessions(30 * time.Millisecond)
	fired := make(chan struct{}, 1)
	sessions.Start("c1", pix.Payload{}, func(string, PixSession) { fired <- struct{}{} })
	require.True(t, sessions.Discard("c1"))
	require.False(t, sessions.Discard("c1"))

	select {
	case <-fired:
		t.Fatal("discarded countdown fired")
	case <-time.After(100 * time.Millisecond):
	}
	_, ok := sessions.Get("c1")
	require.False(t, ok)
}

func TestPixSessionRestartReplacesPrevious(t *testing.T) {
	sessions := NewPixSessions(time.Hour)
	t.Cleanup(sessions.Close)
	sessions.Start("c1", pix.Payload{TxID: "LB1"}, nil)
	sessions.Start("c1", pix.Payload{TxID: "LB2"}, nil)
	got, ok := sessions.Get("c1")
	require.True(t, ok)
	require.Equal(t, "LB2", got.Payload.TxID)
	require.Equal(t, 1, sessions.Len())
	require.InDelta(t, time.Hour.Seconds(), got.Remaining(time.Now()).Seconds(), 1)
}
