// Package messaging implements the bot API channel: sending text, inline
// keyboards and documents, and downloading user-uploaded photos.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// Client talks to the bot HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a bot API client. Returns nil when no token is configured
// so callers can treat the channel as absent.
func NewClient(cfg config.TelegramConfig, log *logger.Logger) *Client {
	if cfg.GetTelegramBotToken() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetTelegramAPIBaseURL(), "/"),
		token:   cfg.GetTelegramBotToken(),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("bot api %s returned: %s", method, parsed.Description)
	}
	if out != nil {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c == nil {
		return nil
	}
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// SendButtons sends a message with an inline keyboard and returns the sent
// message ID so the keyboard can be edited away later.
func (c *Client) SendButtons(ctx context.Context, chatID int64, text string, rows [][]Button) (int64, error) {
	if c == nil {
		return 0, nil
	}
	var sent Message
	if err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"reply_markup": map[string]any{"inline_keyboard": rows},
	}, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text (and keyboard) of a previously sent message.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID int64, text string, rows [][]Button) error {
	if c == nil {
		return nil
	}
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if rows != nil {
		payload["reply_markup"] = map[string]any{"inline_keyboard": rows}
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if c == nil {
		return nil
	}
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}

// SendDocument uploads a local file to a chat as a document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filePath, caption string) error {
	if c == nil {
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("document", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendDocument request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode sendDocument response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("bot api sendDocument returned: %s", parsed.Description)
	}

	c.log.Info("document sent", "chat_id", chatID, "file", filepath.Base(filePath))
	return nil
}

type fileInfo struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// DownloadFile fetches a user-uploaded file by its file ID and writes it to
// destPath, creating parent directories as needed.
func (c *Client) DownloadFile(ctx context.Context, fileID, destPath string) error {
	if c == nil {
		return fmt.Errorf("messaging channel not configured")
	}

	var info fileInfo
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &info); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, info.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("file download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("file download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write downloaded file: %w", err)
	}
	return nil
}
