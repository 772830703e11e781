// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/jeranaias/rolechat/internal/api"
)

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, language.English, ParseLanguage("en-US"))
	assert.Equal(t, language.English, ParseLanguage(""))
	assert.Equal(t, language.English, ParseLanguage("not a tag!"))
	assert.Equal(t, language.SimplifiedChinese, ParseLanguage("zh-CN"))
}

func TestDescribe(t *testing.T) {
	en := ParseLanguage("en")
	zh := ParseLanguage("zh-Hans")

	expired := &api.TransportError{Status: http.StatusUnauthorized, Cause: api.ErrSessionExpired}
	network := &api.TransportError{Method: "GET", Path: "/chat/sessions", Cause: errors.New("dial tcp: refused")}
	business := &api.TransportError{Status: http.StatusBadRequest, Message: "余额不足"}
	bare := &api.TransportError{Status: http.StatusInternalServerError}

	tests := []struct {
		name string
		err  error
		lang language.Tag
		want string
	}{
		{"nil", nil, en, ""},
		{"expired en", expired, en, "Your login has expired, please sign in again"},
		{"expired zh", expired, zh, "登录状态已失效，请重新登录"},
		{"missing role zh", fmt.Errorf("create: %w", ErrMissingRoleID), zh, "缺少角色 ID"},
		{"backend text passes through", business, en, "余额不足"},
		{"network", network, en, "Cannot reach the server, check your connection"},
		{"generic zh", bare, zh, "请求失败，请稍后重试"},
		{"stream", &StreamError{Err: errors.New("reset")}, en, "The reply was interrupted"},
		{"stale", &ReconciliationError{SessionID: "s1", Err: bare}, en, "Reply saved, but the session list could not be refreshed"},
		{"unknown", errors.New("weird"), en, "Request failed, please try again later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err, tt.lang))
		})
	}
}
