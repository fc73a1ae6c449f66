/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package notify announces scheduled run results.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aahamlin/jira-reporting-scripts/internal/config"
)

type Telegram struct {
	token   string
	chatIDs []int64
	http    *http.Client
	log     zerolog.Logger
}

func NewTelegram(cfg config.Config, log zerolog.Logger) *Telegram {
	return &Telegram{
		token:   cfg.TelegramToken,
		chatIDs: cfg.TelegramChatIDs,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Enabled reports whether a token and at least one chat are configured.
func (t *Telegram) Enabled() bool { return t.token != "" && len(t.chatIDs) > 0 }

// Broadcast sends text to every configured chat. Per-chat failures are
// logged and do not stop the remaining sends.
func (t *Telegram) Broadcast(ctx context.Context, text string) {
	for _, id := range t.chatIDs {
		if err := t.sendMessage(ctx, id, text); err != nil {
			t.log.Error().Err(err).Int64("chat_id", id).Msg("telegram send failed")
		}
	}
}

func (t *Telegram) sendMessage(ctx context.Context, chatID int64, text string) error {
	if t.token == "" || chatID == 0 { return fmt.Errorf("telegram: missing token or chat id") }
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.http.Do(req)
	if err != nil { return err }
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
