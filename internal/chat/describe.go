// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat keeps local chat state consistent with the backend while
// replies stream in.
package chat

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/jeranaias/rolechat/internal/api"
)

// =============================================================================
// USER-FACING ERROR TEXT
// =============================================================================

// Message keys. The English text doubles as the key.
const (
	msgSessionExpired = "Your login has expired, please sign in again"
	msgRequestFailed  = "Request failed, please try again later"
	msgNetwork        = "Cannot reach the server, check your connection"
	msgMissingRole    = "Missing role ID"
	msgEmptyMessage   = "Message cannot be empty"
	msgSessionNotOpen = "Open the session before sending"
	msgNotFound       = "Message not found"
	msgNotAssistant   = "Only character replies can be regenerated"
	msgProvisional    = "This message has not been saved yet"
	msgInterrupted    = "The reply was interrupted"
	msgStale          = "Reply saved, but the session list could not be refreshed"
)

var (
	messages  = buildCatalog()
	supported = messages.Languages()
	matcher   = language.NewMatcher(supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	zh := language.SimplifiedChinese
	for _, kv := range [][2]string{
		{msgSessionExpired, "登录状态已失效，请重新登录"},
		{msgRequestFailed, "请求失败，请稍后重试"},
		{msgNetwork, "无法连接服务器，请检查网络"},
		{msgMissingRole, "缺少角色 ID"},
		{msgEmptyMessage, "消息不能为空"},
		{msgSessionNotOpen, "请先打开会话再发送"},
		{msgNotFound, "消息不存在"},
		{msgNotAssistant, "只能重新生成角色回复"},
		{msgProvisional, "消息尚未保存"},
		{msgInterrupted, "回复中断"},
		{msgStale, "回复已保存，但会话列表刷新失败"},
	} {
		_ = b.SetString(language.English, kv[0], kv[0])
		_ = b.SetString(zh, kv[0], kv[1])
	}
	return b
}

// ParseLanguage resolves a BCP 47 tag such as "zh-CN" or "en-US" to the
// closest supported language. Unknown input yields English.
func ParseLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Describe turns err into text fit for an end user in lang. Business errors
// reported by the backend are passed through verbatim; everything else maps
// to a fixed phrase. A nil error yields "".
func Describe(err error, lang language.Tag) string {
	if err == nil {
		return ""
	}
	p := message.NewPrinter(lang, message.Catalog(messages))

	var (
		streamErr *StreamError
		reconErr  *ReconciliationError
	)
	switch {
	case api.IsAuthExpired(err):
		return p.Sprintf(msgSessionExpired)
	case errors.Is(err, ErrMissingRoleID):
		return p.Sprintf(msgMissingRole)
	case errors.Is(err, ErrEmptyMessage):
		return p.Sprintf(msgEmptyMessage)
	case errors.Is(err, ErrSessionNotOpen):
		return p.Sprintf(msgSessionNotOpen)
	case errors.Is(err, ErrMessageNotFound):
		return p.Sprintf(msgNotFound)
	case errors.Is(err, ErrNotAssistant):
		return p.Sprintf(msgNotAssistant)
	case errors.Is(err, ErrProvisional):
		return p.Sprintf(msgProvisional)
	case errors.As(err, &reconErr):
		return p.Sprintf(msgStale)
	case errors.As(err, &streamErr):
		if msg := api.BackendMessage(err); msg != "" {
			return msg
		}
		return p.Sprintf(msgInterrupted)
	}

	if msg := api.BackendMessage(err); msg != "" {
		return msg
	}
	if api.IsNetwork(err) {
		return p.Sprintf(msgNetwork)
	}
	return p.Sprintf(msgRequestFailed)
}
