package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	"imbridge/pkg/imsdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FreshStubIsLoggedOut(t *testing.T) {
	c := New()

	status, err := c.GetLoginStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, imsdk.LoginStatusLoggedOut, status)
}

func TestClient_LoginLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New(WithCredentials(map[string]string{"alice": "secret"}))

	_, err := c.Login(ctx, "alice", "secret")
	var sdkErr *imsdk.Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrCodeNotInitialized, sdkErr.Code)

	info, err := c.InitSDK(ctx, imsdk.Config{APIAddr: "a", WSAddr: "w", PlatformID: 1})
	require.NoError(t, err)
	assert.Equal(t, SDKVersion, info.SDKVersion)

	_, err = c.Login(ctx, "alice", "wrong")
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrCodeTokenInvalid, sdkErr.Code)

	session, err := c.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.UserID)
	assert.Equal(t, imsdk.LoginStatusLoggedIn, session.Status)

	require.NoError(t, c.Logout(ctx))

	err = c.Logout(ctx)
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrCodeNotLoggedIn, sdkErr.Code)
}

func TestClient_SendTextMessage(t *testing.T) {
	ctx := context.Background()
	fixed := time.UnixMilli(1700000000000)
	c := New(WithClock(func() time.Time { return fixed }))

	_, err := c.SendTextMessage(ctx, imsdk.TextMessage{Text: "hi", RecvID: "bob"})
	require.Error(t, err)

	_, err = c.InitSDK(ctx, imsdk.Config{})
	require.NoError(t, err)
	_, err = c.Login(ctx, "alice", "token")
	require.NoError(t, err)

	var progress []int64
	sendCtx := imsdk.WithProgress(ctx, func(p int64) { progress = append(progress, p) })
	sent, err := c.SendTextMessage(sendCtx, imsdk.TextMessage{Text: "hi", RecvID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, progress)
	assert.NotEmpty(t, sent.ClientMsgID)
	assert.NotEmpty(t, sent.ServerMsgID)
	assert.Equal(t, fixed.UnixMilli(), sent.SendTime)
	assert.Equal(t, []imsdk.TextMessage{{Text: "hi", RecvID: "bob"}}, c.Sent())
}

func TestClient_ConversationListIsCopied(t *testing.T) {
	ctx := context.Background()
	conversations := []imsdk.Conversation{
		{ConversationID: "si_alice_bob", ShowName: "Bob"},
		{ConversationID: "sg_team", ShowName: "Team"},
	}
	c := New(WithConversations(conversations))
	_, _ = c.InitSDK(ctx, imsdk.Config{})
	_, _ = c.Login(ctx, "alice", "token")

	list, err := c.GetAllConversationList(ctx)
	require.NoError(t, err)
	assert.Equal(t, conversations, list)

	list[0].ShowName = "mutated"
	again, err := c.GetAllConversationList(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bob", again[0].ShowName)
}

func TestClient_FailWithAndDelay(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	c.FailWith(OpGetLoginStatus, boom)
	_, err := c.GetLoginStatus(context.Background())
	assert.ErrorIs(t, err, boom)

	c.FailWith(OpGetLoginStatus, nil)
	_, err = c.GetLoginStatus(context.Background())
	assert.NoError(t, err)

	c.Delay(OpGetLoginStatus, 50*time.Millisecond)
	start := time.Now()
	_, err = c.GetLoginStatus(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 3, c.Calls(OpGetLoginStatus))
}

func TestClient_DelayHonoursContext(t *testing.T) {
	c := New()
	c.Delay(OpLogout, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Logout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
