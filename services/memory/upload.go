// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package memory

import "fmt"

// maxUploadChars caps how much extracted file text is forwarded to the
// completion service. Counted in runes, not bytes, since uploads are
// predominantly Chinese text.
const maxUploadChars = 10000

// WrapUploadMessage turns extracted file text into the user message that
// an upload exchange sends: the fixed instruction template naming the
// original file, a truncation notice when the content was cut, and then
// the (capped) content itself.
func WrapUploadMessage(filename, text string) string {
	note := ""
	runes := []rune(text)
	if len(runes) > maxUploadChars {
		text = string(runes[:maxUploadChars])
		note = fmt.Sprintf("（注意：文件内容过长，已截取前 %d 字）\n", maxUploadChars)
	}
	return fmt.Sprintf("我上传了一个文件「%s」，请阅读以下文件内容并结合它回答我的问题：\n%s\n%s", filename, note, text)
}
