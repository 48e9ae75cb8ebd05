// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import (
	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

const (
	// historyWindow is how many recent turns are carried into the prompt
	// context, and also the threshold at which the summarization trigger
	// compacts persisted history.
	historyWindow = 40

	summaryLabel       = "历史摘要："
	searchResultsLabel = "联网搜索结果（供参考）：\n"
)

// BuildContext assembles the bounded message sequence for one exchange.
//
// Order: the rolling summary as a leading system message (when present),
// the last 40 history turns verbatim, the search-results block as a
// further system message (when present), and finally the new user turn.
// The effective system prompt is then merged in: prepended to the leading
// summary message joined by a blank line, or inserted as a new leading
// system message when there is no summary. The assembled list carries at
// most one leading system message.
//
// BuildContext is pure; it has no side effects and no failure mode.
func BuildContext(history []datatypes.Message, summary, searchContext, userMessage, systemPrompt string) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(history)+3)

	if summary != "" {
		messages = append(messages, datatypes.SystemMessage(summaryLabel+summary))
	}

	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	messages = append(messages, window...)

	if searchContext != "" {
		messages = append(messages, datatypes.SystemMessage(searchResultsLabel+searchContext))
	}

	messages = append(messages, datatypes.UserMessage(userMessage))

	if messages[0].Role != datatypes.RoleSystem {
		messages = append([]datatypes.Message{datatypes.SystemMessage(systemPrompt)}, messages...)
	} else {
		messages[0].Content = systemPrompt + "\n\n" + messages[0].Content
	}
	return messages
}
