package publish

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

	"wgharvest/pkg/config"
)

// Telegram sends the archive as a document through the Bot API
type Telegram struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegram creates a Telegram publisher from cfg
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Telegram{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Publish(ctx context.Context, archivePath string, meta Metadata) error {
	body, contentType, err := t.buildForm(archivePath, meta)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", t.apiURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		// the URL carries the bot token
		return fmt.Errorf("send document: %w", redact(err, t.botToken))
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return &StatusError{
			Destination: t.Name(),
			StatusCode:  resp.StatusCode,
			Description: parsed.Description,
		}
	}
	return nil
}

func (t *Telegram) buildForm(archivePath string, meta Metadata) (io.Reader, string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"chat_id", t.chatID},
		{"caption", Caption(meta)},
		{"parse_mode", "Markdown"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("document", filepath.Base(archivePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create document part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
