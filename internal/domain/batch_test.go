package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageListValueScan(t *testing.T) {
	userID := int64(3)
	list := MessageList{
		{RoomID: "1", Sender: "alice", SenderUserID: &userID, Content: "first", CreatedAt: "2026-03-14 10:00:00", Type: MessageTalk},
		{RoomID: "1", Sender: "bob", Content: "second", CreatedAt: "2026-03-14 10:00:01", Type: MessageEnter},
	}

	value, err := list.Value()
	require.NoError(t, err)

	var decoded MessageList
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, list, decoded)

	var fromBytes MessageList
	require.NoError(t, fromBytes.Scan([]byte(value.(string))))
	assert.Equal(t, list, fromBytes)
}

func TestMessageListScanNil(t *testing.T) {
	var list MessageList
	require.NoError(t, list.Scan(nil))
	assert.Nil(t, list)
}

func TestMessageListScanUnsupported(t *testing.T) {
	var list MessageList
	assert.Error(t, list.Scan(42))
}
