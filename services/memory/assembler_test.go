// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

func TestBuildContext_NoHistoryNoSummary(t *testing.T) {
	messages := BuildContext(nil, "", "", "你好", "你是杏铃酱。")

	require.Len(t, messages, 2)
	assert.Equal(t, datatypes.RoleSystem, messages[0].Role)
	assert.Equal(t, "你是杏铃酱。", messages[0].Content)
	assert.Equal(t, datatypes.RoleUser, messages[1].Role)
	assert.Equal(t, "你好", messages[1].Content)
}

func TestBuildContext_SummaryMergedIntoLeadingSystemMessage(t *testing.T) {
	messages := BuildContext(nil, "之前聊了天气。", "", "继续", "你是杏铃酱。")

	require.Len(t, messages, 2)
	assert.Equal(t, datatypes.RoleSystem, messages[0].Role)
	assert.Equal(t, "你是杏铃酱。\n\n历史摘要：之前聊了天气。", messages[0].Content)

	// Exactly one system message leads the sequence.
	for _, m := range messages[1:] {
		assert.NotEqual(t, datatypes.RoleSystem, m.Role)
	}
}

func TestBuildContext_HistoryWindowKeepsLastForty(t *testing.T) {
	history := make([]datatypes.Message, 0, 50)
	for i := 0; i < 25; i++ {
		history = append(history,
			datatypes.UserMessage(fmt.Sprintf("q%d", i)),
			datatypes.AssistantMessage(fmt.Sprintf("a%d", i)))
	}

	messages := BuildContext(history, "", "", "next", "prompt")

	// system prompt + 40 windowed turns + user message
	require.Len(t, messages, 42)
	assert.Equal(t, "q5", messages[1].Content)
	assert.Equal(t, "a24", messages[40].Content)
	assert.Equal(t, "next", messages[41].Content)
}

func TestBuildContext_SearchBlockBetweenHistoryAndUserTurn(t *testing.T) {
	history := []datatypes.Message{
		datatypes.UserMessage("earlier"),
		datatypes.AssistantMessage("reply"),
	}
	messages := BuildContext(history, "", "标题: 内容", "现在几点", "prompt")

	require.Len(t, messages, 5)
	assert.Equal(t, datatypes.RoleSystem, messages[3].Role)
	assert.Equal(t, "联网搜索结果（供参考）：\n标题: 内容", messages[3].Content)
	assert.Equal(t, datatypes.RoleUser, messages[4].Role)
	assert.Equal(t, "现在几点", messages[4].Content)
}

func TestBuildContext_FullOrdering(t *testing.T) {
	history := []datatypes.Message{
		datatypes.UserMessage("u1"),
		datatypes.AssistantMessage("a1"),
	}
	messages := BuildContext(history, "摘要内容", "搜索内容", "u2", "系统提示")

	require.Len(t, messages, 5)
	assert.Equal(t, "系统提示\n\n历史摘要：摘要内容", messages[0].Content)
	assert.Equal(t, "u1", messages[1].Content)
	assert.Equal(t, "a1", messages[2].Content)
	assert.Equal(t, "联网搜索结果（供参考）：\n搜索内容", messages[3].Content)
	assert.Equal(t, "u2", messages[4].Content)
}

func TestBuildContext_DoesNotMutateHistory(t *testing.T) {
	history := []datatypes.Message{
		datatypes.SystemMessage("original"),
		datatypes.UserMessage("u1"),
	}
	_ = BuildContext(history, "", "", "u2", "prompt")

	// The leading-system merge must copy, never rewrite the caller's slice.
	assert.Equal(t, "original", history[0].Content)
}
